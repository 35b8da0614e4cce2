package core

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/JonMunkholm/planner/internal/logging"
	"github.com/JonMunkholm/planner/internal/notify"
)

// normalizeEmail validates a bare address and lowercases it.
func normalizeEmail(s string) (string, error) {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, s)
	}
	return strings.ToLower(addr.Address), nil
}

// ListCollaborators returns the people with access to a project.
func (s *Service) ListCollaborators(ctx context.Context, projectID string) ([]Collaborator, error) {
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListCollaborators(ctx, projectID)
}

// AddCollaborator grants email access to a project and sends an invitation.
// Only editor and viewer roles can be granted; a project has one owner.
func (s *Service) AddCollaborator(ctx context.Context, projectID, email string, role Role) (Collaborator, error) {
	if role != RoleEditor && role != RoleViewer {
		return Collaborator{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return Collaborator{}, err
	}

	unlock := s.lockProject(projectID)
	defer unlock()

	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return Collaborator{}, err
	}
	existing, err := s.repo.ListCollaborators(ctx, projectID)
	if err != nil {
		return Collaborator{}, fmt.Errorf("list collaborators: %w", err)
	}
	for _, c := range existing {
		if c.Email == email {
			return Collaborator{}, ErrDuplicateCollaborator
		}
	}

	c := Collaborator{
		ProjectID: projectID,
		Email:     email,
		Role:      role,
		InvitedBy: ActorFromContext(ctx),
		AddedAt:   s.now().UTC(),
	}
	if err := s.repo.AddCollaborator(ctx, c); err != nil {
		return Collaborator{}, fmt.Errorf("add collaborator: %w", err)
	}

	s.recordActivity(ctx, ActivityParams{ProjectID: projectID, Action: ActionCollaboratorAdd, Subject: email, Detail: string(role)})

	msg, err := notify.InviteMessage(notify.InviteData{
		To:          email,
		InvitedBy:   c.InvitedBy,
		ProjectName: p.Name,
		Role:        string(role),
		ProjectURL:  s.projectURL(projectID),
	})
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("invitation not sent", "project_id", projectID, "email", email, "error", err)
	}
	return c, nil
}

// RemoveCollaborator revokes a collaborator's access. The owner stays.
func (s *Service) RemoveCollaborator(ctx context.Context, projectID, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	unlock := s.lockProject(projectID)
	defer unlock()

	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return err
	}
	existing, err := s.repo.ListCollaborators(ctx, projectID)
	if err != nil {
		return fmt.Errorf("list collaborators: %w", err)
	}

	found := false
	for _, c := range existing {
		if c.Email != email {
			continue
		}
		if c.Role == RoleOwner {
			return ErrOwnerRemoval
		}
		found = true
	}
	if !found {
		return ErrCollaboratorNotFound
	}

	if err := s.repo.RemoveCollaborator(ctx, projectID, email); err != nil {
		return fmt.Errorf("remove collaborator: %w", err)
	}
	s.recordActivity(ctx, ActivityParams{ProjectID: projectID, Action: ActionCollaboratorRemove, Subject: email})
	return nil
}
