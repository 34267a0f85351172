package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the progress of a group at a single station.
type State int

// Progress states, in the order station staff tap through them.
const (
	StateUnknown  State = 0
	StateArrived  State = 1
	StateFinished State = 2
)

// Next returns the state that follows s in the cycle
// UNKNOWN -> ARRIVED -> FINISHED -> UNKNOWN.
func (s State) Next() (State, error) {
	switch s {
	case StateUnknown:
		return StateArrived, nil
	case StateArrived:
		return StateFinished, nil
	case StateFinished:
		return StateUnknown, nil
	default:
		return s, fmt.Errorf("%d is not a valid state", int(s))
	}
}

// Valid reports whether s is one of the three known states.
func (s State) Valid() bool {
	return s >= StateUnknown && s <= StateFinished
}

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateArrived:
		return "arrived"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Route directions
const (
	DirA = "Giel"
	DirB = "Roud"
)

// Role names
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Setting keys
const (
	SettingRegistrationOpen = "registration_open"
	SettingEventDate        = "event_date"
	SettingHelpdesk         = "helpdesk"
	SettingShout            = "shout"
	SettingEventLocation    = "event_location"
	SettingLocationCoords   = "location_coords"
)

// Domain types

type Group struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Order           int        `json:"order"`
	Cancelled       bool       `json:"cancelled"`
	Contact         string     `json:"contact"`
	Phone           string     `json:"phone"`
	Email           string     `json:"email"`
	Comments        string     `json:"comments"`
	Direction       string     `json:"direction"`
	StartTime       string     `json:"start_time"`
	Completed       bool       `json:"completed"`
	DepartureTime   *time.Time `json:"departure_time,omitempty"`
	FinishTime      *time.Time `json:"finish_time,omitempty"`
	NumVegetarians  int        `json:"num_vegetarians"`
	NumParticipants int        `json:"num_participants"`
	ConfirmationKey string     `json:"-"`
	IsConfirmed     bool       `json:"is_confirmed"`
	Accepted        bool       `json:"accepted"`
	UserID          *int64     `json:"user_id,omitempty"`
	Inserted        time.Time  `json:"inserted"`
	Updated         *time.Time `json:"updated,omitempty"`
}

type Station struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Order   int    `json:"order"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
	IsStart bool   `json:"is_start"`
	IsEnd   bool   `json:"is_end"`
}

// Neighbours holds the stations directly before and after a station in
// route order. Either side may be nil.
type Neighbours struct {
	Before *Station `json:"before"`
	After  *Station `json:"after"`
}

type Form struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	MaxScore int    `json:"max_score"`
	Order    int    `json:"order"`
}

type FormScore struct {
	GroupID int64 `json:"group_id"`
	FormID  int64 `json:"form_id"`
	Score   int   `json:"score"`
}

// GroupStation is the progress row of one group at one station.
type GroupStation struct {
	GroupID      int64     `json:"group_id"`
	StationID    int64     `json:"station_id"`
	State        State     `json:"state"`
	StationScore *int      `json:"score"`
	FormScore    *int      `json:"form_score"`
	Updated      time.Time `json:"updated"`
}

type Message struct {
	ID       int64      `json:"id"`
	GroupID  int64      `json:"group_id"`
	UserID   int64      `json:"user_id"`
	Author   string     `json:"author"`
	Content  string     `json:"content"`
	Inserted time.Time  `json:"inserted"`
	Updated  *time.Time `json:"updated,omitempty"`
}

type User struct {
	ID           int64    `json:"id"`
	Login        string   `json:"login"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Locale       string   `json:"locale,omitempty"`
	PasswordHash string   `json:"-"`
	Roles        []string `json:"roles"`
}

// HasRole reports whether the user carries the named role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Setting struct {
	Key         string `json:"key"`
	Value       any    `json:"value"`
	Description string `json:"description,omitempty"`
}

// Request types

// Optional is a JSON field that remembers whether its key was present.
// An explicit null is present with a nil Value.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a present Optional without a value.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// SetStateRequest is sent by the station app. Older clients send the
// station score as "station" instead of "score". Unset fields are left
// out when encoding.
type SetStateRequest struct {
	FormScore    Optional[int]   `json:"form_score,omitzero"`
	Score        Optional[int]   `json:"score,omitzero"`
	StationScore Optional[int]   `json:"station,omitzero"`
	State        Optional[State] `json:"state,omitzero"`
}

type SetScoreRequest struct {
	Form    Optional[int] `json:"form,omitzero"`
	Station Optional[int] `json:"station,omitzero"`
}

type RegistrationRequest struct {
	GroupName       string `json:"group_name"`
	ContactName     string `json:"contact_name"`
	Email           string `json:"email"`
	Tel             string `json:"tel"`
	Time            string `json:"time"`
	Comments        string `json:"comments"`
	NumVegetarians  int    `json:"num_vegetarians"`
	NumParticipants int    `json:"num_participants"`
	UserID          *int64 `json:"-"`
}

type UpdateGroupRequest struct {
	Name                  string  `json:"name"`
	Contact               string  `json:"contact"`
	Phone                 string  `json:"phone"`
	Email                 string  `json:"email"`
	Comments              string  `json:"comments"`
	NumVegetarians        int     `json:"num_vegetarians"`
	NumParticipants       int     `json:"num_participants"`
	Direction             *string `json:"direction,omitempty"`
	StartTime             *string `json:"start_time,omitempty"`
	Cancelled             *bool   `json:"cancelled,omitempty"`
	Completed             *bool   `json:"completed,omitempty"`
	SendEmail             *bool   `json:"send_email,omitempty"`
	NotificationRecipient string  `json:"notification_recipient"`
}

type TimeSlotRequest struct {
	Direction string `json:"direction"`
	NewSlot   string `json:"new_slot"`
}

type AddGroupRequest struct {
	Name      string `json:"name"`
	Contact   string `json:"contact"`
	Phone     string `json:"phone"`
	Direction string `json:"direction"`
	StartTime string `json:"start_time"`
}

type SaveStationRequest struct {
	ID      *int64 `json:"id,omitempty"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
	Order   int    `json:"order"`
	IsStart bool   `json:"is_start"`
	IsEnd   bool   `json:"is_end"`
}

type AddFormRequest struct {
	Name     string `json:"name"`
	MaxScore int    `json:"max_score"`
	Order    int    `json:"order"`
}

type FormScoreRequest struct {
	Score int `json:"score"`
}

type MessageRequest struct {
	Content string `json:"content"`
}

type CreateUserRequest struct {
	Login    string   `json:"login"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// Response types

type AdvanceResponse struct {
	GroupID   int64 `json:"group_id"`
	StationID int64 `json:"station_id"`
	NewState  State `json:"new_state"`
}

type SetStateResponse struct {
	GroupName   string `json:"group_name"`
	GroupID     int64  `json:"group_id"`
	StationName string `json:"station_name"`
	StationID   int64  `json:"station_id"`
	FormScore   *int   `json:"form_score"`
	Score       *int   `json:"score"`
	State       *State `json:"state"`
}

type RegistrationResponse struct {
	GroupID int64  `json:"group_id"`
	Message string `json:"message"`
}

// ScoreTotal is the aggregated score of one group.
type ScoreTotal struct {
	GroupID         int64   `json:"group_id"`
	ScoreSum        int     `json:"score_sum"`
	PointsPerMinute float64 `json:"points_per_minute"`
}

type ScoreboardRow struct {
	Position        int     `json:"position"`
	GroupID         int64   `json:"group_id"`
	GroupName       string  `json:"group_name"`
	TotalScore      int     `json:"total_score"`
	PointsPerMinute float64 `json:"points_per_minute"`
	PPMPosition     int     `json:"ppm_position"`
	HasCompleted    bool    `json:"has_completed"`
}

type MatrixSum struct {
	Unknown  int `json:"unknown"`
	Arrived  int `json:"arrived"`
	Finished int `json:"finished"`
}

type MatrixRow struct {
	Group  Group           `json:"group"`
	States []*GroupStation `json:"states"`
}

type MatrixResponse struct {
	Stations []Station   `json:"stations"`
	Rows     []MatrixRow `json:"rows"`
	Sums     []MatrixSum `json:"sums"`
}

// DashboardEntry is a progress row joined with its group. Rows for groups
// without recorded progress have Recorded unset and a zero Updated time.
type DashboardEntry struct {
	GroupStation
	GroupName string `json:"group_name"`
	Cancelled bool   `json:"cancelled"`
	Recorded  bool   `json:"recorded"`
}

type Dashboard struct {
	Station      Station          `json:"station"`
	Neighbours   Neighbours       `json:"neighbours"`
	MainStates   []DashboardEntry `json:"main_states"`
	BeforeStates []DashboardEntry `json:"before_states"`
	AfterStates  []DashboardEntry `json:"after_states"`
}

// GroupStateRow pairs a group with its progress at one station; State is
// nil when nothing has been recorded yet.
type GroupStateRow struct {
	Group Group         `json:"group"`
	State *GroupStation `json:"state"`
}

type StationDetails struct {
	Station        Station         `json:"station"`
	GroupStates    []GroupStateRow `json:"group_states"`
	Questionnaires []Form          `json:"questionnaires"`
}

// SlotRow shows which group runs a time slot in each direction.
type SlotRow struct {
	Slot string `json:"slot"`
	DirA *Group `json:"dir_a"`
	DirB *Group `json:"dir_b"`
}

type Stats struct {
	Groups    int     `json:"groups"`
	Slots     int     `json:"slots"`
	FreeSlots int     `json:"free_slots"`
	Load      float64 `json:"load"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
