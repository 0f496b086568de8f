// Package stub provides in-memory collaborator implementations that record
// every call. The dev binary and the test suites run against these.
package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/fieldline/automation/pkg/services"
)

// Call is one recorded collaborator invocation.
type Call struct {
	Service string
	Op      string
	Args    map[string]any
}

// Recorder collects calls across all stub services and can be primed to fail.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	// FailWith, when set, makes every subsequent call return this error.
	failWith error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith primes every following call to return err. Pass nil to clear.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failWith = err
}

// Calls returns a snapshot of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, len(r.calls))
	copy(out, r.calls)

	return out
}

// CallsTo returns the recorded calls for one service operation.
func (r *Recorder) CallsTo(service, op string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, 0)

	for _, c := range r.calls {
		if c.Service == service && c.Op == op {
			out = append(out, c)
		}
	}

	return out
}

func (r *Recorder) record(service, op string, args map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Service: service, Op: op, Args: args})

	return r.failWith
}

// NewCollaborators builds a full stub collaborator set sharing one recorder
// and one directory.
func NewCollaborators(recorder *Recorder, directory *Directory) services.Collaborators {
	return services.Collaborators{
		Directory:  directory,
		Tasks:      &taskService{r: recorder},
		Messaging:  &messagingService{r: recorder},
		Email:      &emailService{r: recorder},
		Notes:      &noteService{r: recorder},
		Pipelines:  &pipelineService{r: recorder},
		Assignment: &assignmentService{r: recorder},
		Chat:       &chatService{r: recorder},
	}
}

type taskService struct {
	r *Recorder
}

func (s *taskService) CreateTask(_ context.Context, req services.TaskRequest) (string, error) {
	if err := s.r.record("tasks", "CreateTask", map[string]any{
		"name":     req.Name,
		"assignee": req.AssignedUserID,
		"priority": req.Priority,
	}); err != nil {
		return "", err
	}

	return "task-" + uuid.New().String()[:8], nil
}

type messagingService struct {
	r *Recorder
}

func (s *messagingService) SendText(_ context.Context, to services.Contact, message string) (string, error) {
	if to.Phone == "" {
		return "", fmt.Errorf("recipient %s has no phone number: %w", to.ID, services.ErrNotFound)
	}

	if err := s.r.record("messaging", "SendText", map[string]any{
		"to":      to.Phone,
		"message": message,
	}); err != nil {
		return "", err
	}

	return "sms-" + uuid.New().String()[:8], nil
}

type emailService struct {
	r *Recorder
}

func (s *emailService) SendEmail(_ context.Context, to services.Contact, subject, body string) (string, error) {
	if to.Email == "" {
		return "", fmt.Errorf("recipient %s has no email address: %w", to.ID, services.ErrNotFound)
	}

	if err := s.r.record("email", "SendEmail", map[string]any{
		"to":      to.Email,
		"subject": subject,
		"body":    body,
	}); err != nil {
		return "", err
	}

	return "email-" + uuid.New().String()[:8], nil
}

type noteService struct {
	r *Recorder
}

func (s *noteService) AppendNote(_ context.Context, recordID, note string) (string, error) {
	if err := s.r.record("notes", "AppendNote", map[string]any{
		"record_id": recordID,
		"note":      note,
	}); err != nil {
		return "", err
	}

	return "note-" + uuid.New().String()[:8], nil
}

type pipelineService struct {
	r *Recorder
}

func (s *pipelineService) UpdateStage(_ context.Context, recordID, pipeline, stage string) error {
	return s.r.record("pipelines", "UpdateStage", map[string]any{
		"record_id": recordID,
		"pipeline":  pipeline,
		"stage":     stage,
	})
}

func (s *pipelineService) MovePipeline(_ context.Context, recordID, toPipeline, toStage string) error {
	return s.r.record("pipelines", "MovePipeline", map[string]any{
		"record_id":   recordID,
		"to_pipeline": toPipeline,
		"to_stage":    toStage,
	})
}

type assignmentService struct {
	r *Recorder
}

func (s *assignmentService) AssignUser(_ context.Context, recordID, userID, role string) error {
	return s.r.record("assignment", "AssignUser", map[string]any{
		"record_id": recordID,
		"user_id":   userID,
		"role":      role,
	})
}

type chatService struct {
	r *Recorder
}

func (s *chatService) CreateChannel(_ context.Context, name string) (string, error) {
	if err := s.r.record("chat", "CreateChannel", map[string]any{"name": name}); err != nil {
		return "", err
	}

	return "channel-" + uuid.New().String()[:8], nil
}

func (s *chatService) SendMessage(_ context.Context, channelID, message string) (string, error) {
	if err := s.r.record("chat", "SendMessage", map[string]any{
		"channel_id": channelID,
		"message":    message,
	}); err != nil {
		return "", err
	}

	return "msg-" + uuid.New().String()[:8], nil
}

func (s *chatService) FindChannel(_ context.Context, ref services.ChannelRef) (string, error) {
	if err := s.r.record("chat", "FindChannel", map[string]any{
		"proposal_id":   ref.ProposalID,
		"job_id":        ref.JobID,
		"customer_name": ref.CustomerName,
	}); err != nil {
		return "", err
	}

	return "channel-" + uuid.New().String()[:8], nil
}
