package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"contactbook/backend/internal/config"
	"contactbook/backend/internal/contacts"
	"contactbook/backend/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type contactOutput struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type explainOutput struct {
	Policy      contacts.Policy `json:"policy"`
	Contacts    []contactOutput `json:"contacts"`
	Requested   []contactOutput `json:"requested"`
	RequestedBy []contactOutput `json:"requested_by"`
	Resolved    []contactOutput `json:"resolved"`
}

func toOutput(users []models.User) []contactOutput {
	out := make([]contactOutput, 0, len(users))
	for _, u := range users {
		out = append(out, contactOutput{ID: u.ID, Name: u.Name})
	}
	return out
}

func contactsCmd() *cobra.Command {
	var explain bool
	cmd := &cobra.Command{
		Use:          "contacts <user-id>",
		Short:        "print the confirmed contacts of a user",
		Long:         `contacts prints the confirmed contacts of a user as JSON. With --explain it also prints the raw request lists and the list-level resolution of them.`,
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			return withDB(cmd, func(ctx context.Context, cfg *config.Config, log *logrus.Logger, db *gorm.DB) error {
				policy, err := contacts.ParsePolicy(cfg.ContactPolicy)
				if err != nil {
					return err
				}
				svc := contacts.NewService(db, contacts.WithLogger(log), contacts.WithDefaultPolicy(policy))

				out, err := resolveContacts(ctx, svc, uint(id), explain)
				if err != nil {
					return err
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			})
		},
	}

	cmd.Flags().BoolVar(&explain, "explain", false, "also print the requested and requested-by lists")
	return cmd
}

func resolveContacts(ctx context.Context, svc *contacts.Service, id uint, explain bool) (any, error) {
	confirmed, err := svc.ConfirmedContacts(ctx, id, "")
	if err != nil {
		return nil, err
	}
	if !explain {
		return toOutput(confirmed), nil
	}

	requested, err := svc.Requested(ctx, id)
	if err != nil {
		return nil, err
	}
	requestedBy, err := svc.RequestedBy(ctx, id)
	if err != nil {
		return nil, err
	}

	return explainOutput{
		Policy:      svc.DefaultPolicy(),
		Contacts:    toOutput(confirmed),
		Requested:   toOutput(requested),
		RequestedBy: toOutput(requestedBy),
		Resolved:    toOutput(contacts.Resolve(requested, requestedBy)),
	}, nil
}
