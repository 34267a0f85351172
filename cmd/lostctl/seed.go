// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

// seedFile is the YAML layout accepted by "lostctl seed".
type seedFile struct {
	Settings map[string]any `yaml:"settings"`
	Stations []seedStation  `yaml:"stations"`
	Forms    []seedForm     `yaml:"forms"`
	Groups   []seedGroup    `yaml:"groups"`
	Users    []seedUser     `yaml:"users"`
}

type seedStation struct {
	Name    string `yaml:"name"`
	Order   int    `yaml:"order"`
	Contact string `yaml:"contact"`
	Phone   string `yaml:"phone"`
	IsStart bool   `yaml:"is_start"`
	IsEnd   bool   `yaml:"is_end"`
}

type seedForm struct {
	Name     string `yaml:"name"`
	MaxScore int    `yaml:"max_score"`
	Order    int    `yaml:"order"`
}

type seedGroup struct {
	Name      string `yaml:"name"`
	Contact   string `yaml:"contact"`
	Phone     string `yaml:"phone"`
	Direction string `yaml:"direction"`
	StartTime string `yaml:"start_time"`
}

type seedUser struct {
	Login    string   `yaml:"login"`
	Name     string   `yaml:"name"`
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	Roles    []string `yaml:"roles"`
}

// seedResult counts what a seed run created.
type seedResult struct {
	Settings int
	Stations int
	Forms    int
	Groups   int
	Users    int
	Skipped  int
}

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Load stations, forms, groups and users from a YAML file",
		Long: `Load event data from a YAML file.

Stations, forms, groups and users that already exist are skipped, so a seed
file can be applied more than once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			data, err := parseSeed(f)
			if err != nil {
				return err
			}

			t, closeDB, err := opts.tracker()
			if err != nil {
				return err
			}
			defer closeDB()

			res, err := applySeed(cmd.Context(), t, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"seeded %d settings, %d stations, %d forms, %d groups, %d users (%d skipped)\n",
				res.Settings, res.Stations, res.Forms, res.Groups, res.Users, res.Skipped)
			return nil
		},
	}
}

func parseSeed(r io.Reader) (seedFile, error) {
	var data seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		return data, fmt.Errorf("invalid seed file: %w", err)
	}
	return data, nil
}

func applySeed(ctx context.Context, t *tracker.Tracker, data seedFile) (seedResult, error) {
	var res seedResult

	if len(data.Settings) > 0 {
		values := make(map[string]json.RawMessage, len(data.Settings))
		for k, v := range data.Settings {
			raw, err := json.Marshal(v)
			if err != nil {
				return res, fmt.Errorf("setting %s: %w", k, err)
			}
			values[k] = raw
		}
		if err := t.PutSettings(ctx, values); err != nil {
			return res, err
		}
		res.Settings = len(values)
	}

	existing, err := t.ListStations(ctx)
	if err != nil {
		return res, err
	}
	stationNames := make(map[string]bool, len(existing))
	for _, s := range existing {
		stationNames[s.Name] = true
	}
	for _, s := range data.Stations {
		if stationNames[s.Name] {
			res.Skipped++
			continue
		}
		if _, err := t.SaveStation(ctx, models.SaveStationRequest{
			Name: s.Name, Order: s.Order, Contact: s.Contact, Phone: s.Phone,
			IsStart: s.IsStart, IsEnd: s.IsEnd,
		}); err != nil {
			return res, fmt.Errorf("station %s: %w", s.Name, err)
		}
		res.Stations++
	}

	forms, err := t.ListForms(ctx)
	if err != nil {
		return res, err
	}
	formNames := make(map[string]bool, len(forms))
	for _, f := range forms {
		formNames[f.Name] = true
	}
	for _, f := range data.Forms {
		if formNames[f.Name] {
			res.Skipped++
			continue
		}
		if _, err := t.AddForm(ctx, models.AddFormRequest{Name: f.Name, MaxScore: f.MaxScore, Order: f.Order}); err != nil {
			return res, fmt.Errorf("form %s: %w", f.Name, err)
		}
		res.Forms++
	}

	for _, g := range data.Groups {
		_, err := t.AddGroup(ctx, models.AddGroupRequest{
			Name: g.Name, Contact: g.Contact, Phone: g.Phone,
			Direction: g.Direction, StartTime: g.StartTime,
		})
		if errors.Is(err, tracker.ErrGroupExists) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("group %s: %w", g.Name, err)
		}
		res.Groups++
	}

	for _, u := range data.Users {
		if _, err := t.UserByLogin(ctx, u.Login); err == nil {
			res.Skipped++
			continue
		}
		if _, err := t.CreateUser(ctx, models.CreateUserRequest{
			Login: u.Login, Name: u.Name, Email: u.Email, Password: u.Password, Roles: u.Roles,
		}); err != nil {
			return res, fmt.Errorf("user %s: %w", u.Login, err)
		}
		res.Users++
	}

	return res, nil
}
