package chatbot

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sysmentor/sysmentor-backend/internal/repository"
)

// fakeLLM is a scripted stand-in for the external model. The generate
// function receives the full prompt, so tests can branch on which call
// is being made.
type fakeLLM struct {
	mu       sync.Mutex
	generate func(prompt string) (string, error)
	prompts  []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.generate == nil {
		return "ok", nil
	}
	return f.generate(prompt)
}

func (f *fakeLLM) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []repository.Message
	nextID   int64
	failNext error
}

func (r *fakeMessageRepo) Append(_ context.Context, message *repository.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	r.nextID++
	message.ID = r.nextID
	message.Fecha = time.Now()
	r.messages = append(r.messages, *message)
	return nil
}

func (r *fakeMessageRepo) History(_ context.Context, sessionID string, limit int) ([]repository.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		return []repository.Message{}, nil
	}
	var all []repository.Message
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			all = append(all, m)
		}
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *fakeMessageRepo) CountBySession(_ context.Context, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) List(_ context.Context, filter repository.MessageFilter) ([]repository.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Message
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if filter.SessionID != "" && m.SessionID != filter.SessionID {
			continue
		}
		if filter.Matricula != "" && (m.Matricula == nil || *m.Matricula != filter.Matricula) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMessageRepo) Get(_ context.Context, id int64) (*repository.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			msg := m
			return &msg, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.ID == id {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*repository.Conversation
	summaryCalls  int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: make(map[string]*repository.Conversation)}
}

func (r *fakeConversationRepo) Get(_ context.Context, sessionID string) (*repository.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *conv
	return &copied, nil
}

func (r *fakeConversationRepo) UpsertActivity(_ context.Context, sessionID string, matricula *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.conversations[sessionID]; ok {
		conv.FechaUltimaActividad = time.Now()
		return nil
	}
	r.conversations[sessionID] = &repository.Conversation{
		ID:                   int64(len(r.conversations) + 1),
		SessionID:            sessionID,
		Matricula:            matricula,
		FechaInicio:          time.Now(),
		FechaUltimaActividad: time.Now(),
	}
	return nil
}

func (r *fakeConversationRepo) FinalizeTitle(_ context.Context, sessionID, titulo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[sessionID]
	if !ok || (conv.Titulo != nil && *conv.Titulo != "") {
		return nil
	}
	conv.Titulo = &titulo
	return nil
}

func (r *fakeConversationRepo) MergeTopics(_ context.Context, sessionID string, temas []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[sessionID]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	for _, t := range conv.Temas {
		seen[t] = true
	}
	for _, t := range temas {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		conv.Temas = append(conv.Temas, t)
	}
	return nil
}

func (r *fakeConversationRepo) UpdateSummary(_ context.Context, sessionID, resumen string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[sessionID]
	if !ok {
		return nil
	}
	conv.Resumen = &resumen
	r.summaryCalls++
	return nil
}

func (r *fakeConversationRepo) List(_ context.Context, matricula string, skip, limit int) ([]*repository.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.Conversation
	for _, conv := range r.conversations {
		if matricula != "" && (conv.Matricula == nil || *conv.Matricula != matricula) {
			continue
		}
		copied := *conv
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeConversationRepo) summaryCallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaryCalls
}

type fakeUserRepo struct {
	users map[string]*repository.User
}

func newFakeUserRepo(users ...*repository.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*repository.User)}
	for _, u := range users {
		repo.users[strings.ToLower(u.Matricula)] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *repository.User) error {
	user.ID = int64(len(r.users) + 1)
	r.users[strings.ToLower(user.Matricula)] = user
	return nil
}

func (r *fakeUserRepo) GetByMatricula(_ context.Context, matricula string) (*repository.User, error) {
	user, ok := r.users[strings.ToLower(matricula)]
	if !ok {
		return nil, nil
	}
	return user, nil
}

func (r *fakeUserRepo) Profile(_ context.Context, matricula string) (*repository.StudentProfile, error) {
	user, ok := r.users[strings.ToLower(matricula)]
	if !ok {
		return nil, nil
	}
	return &repository.StudentProfile{Nombre: user.Nombre + " " + user.ApellidoPaterno}, nil
}
