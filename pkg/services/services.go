// Package services defines the outward-facing collaborator interfaces the
// action executors call into. The engine owns none of these capabilities; it
// only invokes them. Symbolic recipient and role resolution belongs to the
// Directory, on the collaborator side of the boundary.
package services

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors collaborators return; executors map these onto the
// transient/permanent action error taxonomy.
var (
	// ErrUnavailable indicates the collaborator could not be reached. Eligible
	// for retry under policy.
	ErrUnavailable = errors.New("service unavailable")

	// ErrNotFound indicates an invalid reference (unknown user, channel,
	// record). Never retried.
	ErrNotFound = errors.New("referenced entity not found")
)

// RecipientType is a symbolic recipient resolved against the directory.
type RecipientType string

const (
	RecipientSalesperson    RecipientType = "salesperson"
	RecipientProjectManager RecipientType = "project_manager"
	RecipientCustomer       RecipientType = "customer"
	RecipientSpecificUser   RecipientType = "specific_user"
)

// Contact is a resolved message recipient.
type Contact struct {
	ID    string
	Name  string
	Phone string
	Email string
}

// Directory resolves symbolic recipients and roles against the CRM's user
// database. UserID is only consulted for RecipientSpecificUser; the other
// recipient types resolve from the event snapshot.
type Directory interface {
	ResolveRecipient(ctx context.Context, recipientType RecipientType, userID string, snapshot map[string]any) (Contact, error)
	ResolveRole(ctx context.Context, role string) (Contact, error)
	ResolveUser(ctx context.Context, userID string) (Contact, error)
}

// TaskRequest describes a task to create.
type TaskRequest struct {
	Name           string
	AssignedUserID string
	DueDate        *time.Time
	Priority       string
	RecordID       string
}

type TaskService interface {
	CreateTask(ctx context.Context, req TaskRequest) (string, error)
}

type MessagingService interface {
	SendText(ctx context.Context, to Contact, message string) (string, error)
}

type EmailService interface {
	SendEmail(ctx context.Context, to Contact, subject, body string) (string, error)
}

type NoteService interface {
	AppendNote(ctx context.Context, recordID, note string) (string, error)
}

type PipelineService interface {
	UpdateStage(ctx context.Context, recordID, pipeline, stage string) error
	MovePipeline(ctx context.Context, recordID, toPipeline, toStage string) error
}

type AssignmentService interface {
	AssignUser(ctx context.Context, recordID, userID, role string) error
}

// ChannelRef locates a team-chat channel by one of the supported keys.
type ChannelRef struct {
	ProposalID   string
	JobID        string
	CustomerName string
}

type ChatService interface {
	CreateChannel(ctx context.Context, name string) (string, error)
	SendMessage(ctx context.Context, channelID, message string) (string, error)
	FindChannel(ctx context.Context, ref ChannelRef) (string, error)
}

// Collaborators bundles every service the executor registry needs.
type Collaborators struct {
	Directory  Directory
	Tasks      TaskService
	Messaging  MessagingService
	Email      EmailService
	Notes      NoteService
	Pipelines  PipelineService
	Assignment AssignmentService
	Chat       ChatService
}
