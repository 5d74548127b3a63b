package services

import (
	"context"
	"sync"
	"time"

	"chat-connector/internal/domain/apperrors"
	"chat-connector/internal/domain/dto"
	"chat-connector/internal/domain/entities"
	"chat-connector/internal/infra/logger"
	"chat-connector/internal/infra/provider"
)

func newTestLogger() *logger.Logger {
	return logger.NewLogger(context.Background(), "fatal", false)
}

// fakeStore is an in-memory ConversationStore with hooks for injecting
// persistence failures.
type fakeStore struct {
	mu            sync.Mutex
	conversations map[int64]entities.Conversation
	messages      []entities.ChatMessage
	documents     []entities.Document
	nextConvID    int64
	nextMsgID     int64
	nextDocID     int64

	appendErr func(sender string) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{conversations: make(map[int64]entities.Conversation)}
}

func (f *fakeStore) addConversation(userID int64, model string) entities.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextConvID++
	c := entities.Conversation{
		ID:            f.nextConvID,
		UserID:        userID,
		Title:         "New Conversation",
		SelectedModel: model,
		CreatedAt:     time.Now().UTC(),
	}
	f.conversations[c.ID] = c
	return c
}

func (f *fakeStore) GetOrCreateConversation(ctx context.Context, userID int64, defaultModel string) (entities.Conversation, error) {
	f.mu.Lock()
	var latest entities.Conversation
	for _, c := range f.conversations {
		if c.UserID == userID && c.ID > latest.ID {
			latest = c
		}
	}
	f.mu.Unlock()
	if latest.ID != 0 {
		return latest, nil
	}
	return f.CreateConversation(ctx, userID, "New Conversation", defaultModel)
}

func (f *fakeStore) CreateConversation(_ context.Context, userID int64, title, model string) (entities.Conversation, error) {
	c := f.addConversation(userID, model)
	c.Title = title
	f.mu.Lock()
	f.conversations[c.ID] = c
	f.mu.Unlock()
	return c, nil
}

func (f *fakeStore) GetConversation(_ context.Context, id int64) (entities.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return entities.Conversation{}, apperrors.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) UpdateConversation(_ context.Context, conversation entities.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.conversations[conversation.ID]; !ok {
		return apperrors.ErrNotFound
	}
	f.conversations[conversation.ID] = conversation
	return nil
}

func (f *fakeStore) DeleteConversation(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conversations, id)

	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.ConversationID != id {
			kept = append(kept, m)
		}
	}
	f.messages = kept

	docs := f.documents[:0]
	for _, d := range f.documents {
		if d.ConversationID != id {
			docs = append(docs, d)
		}
	}
	f.documents = docs
	return nil
}

func (f *fakeStore) ListMessages(_ context.Context, conversationID int64) ([]entities.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.ChatMessage
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) AppendMessage(_ context.Context, conversationID int64, sender, content string) (entities.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		if err := f.appendErr(sender); err != nil {
			return entities.ChatMessage{}, err
		}
	}
	f.nextMsgID++
	m := entities.ChatMessage{
		ID:             f.nextMsgID,
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeStore) GetMessage(_ context.Context, id int64) (entities.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return entities.ChatMessage{}, apperrors.ErrNotFound
}

func (f *fakeStore) UpdateMessageContent(_ context.Context, id int64, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.messages {
		if m.ID == id {
			f.messages[i].Content = content
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeStore) SaveDocument(_ context.Context, document entities.Document) (entities.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextDocID++
	document.ID = f.nextDocID
	document.UploadedAt = time.Now().UTC()
	f.documents = append(f.documents, document)
	return document, nil
}

func (f *fakeStore) GetDocument(_ context.Context, id int64) (entities.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.documents {
		if d.ID == id {
			return d, nil
		}
	}
	return entities.Document{}, apperrors.ErrNotFound
}

func (f *fakeStore) LatestDocument(_ context.Context, conversationID int64, excludeAudio bool) (entities.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.documents) - 1; i >= 0; i-- {
		d := f.documents[i]
		if d.ConversationID != conversationID {
			continue
		}
		if excludeAudio && d.IsAudio() {
			continue
		}
		return d, nil
	}
	return entities.Document{}, apperrors.ErrNotFound
}

func (f *fakeStore) messagesFor(conversationID int64) []entities.ChatMessage {
	out, _ := f.ListMessages(context.Background(), conversationID)
	return out
}

// fakeLLM is a scripted ILLMProvider. With holdAfter >= 0 it emits deltas up
// to that index and then blocks until the stream context is cancelled,
// which is how the cancellation path is exercised.
type fakeLLM struct {
	name      string
	models    []string
	deltas    []provider.Delta
	holdAfter int
	chatReply dto.ChatTurnMessage
	chatErr   error

	mu           sync.Mutex
	lastModel    string
	lastMessages []dto.ChatTurnMessage
}

func newFakeLLM(models []string, deltas ...provider.Delta) *fakeLLM {
	return &fakeLLM{name: "fake", models: models, deltas: deltas, holdAfter: -1}
}

func (f *fakeLLM) Name() string { return f.name }

func (f *fakeLLM) ListModels(context.Context) []string { return f.models }

func (f *fakeLLM) Chat(_ context.Context, model string, messages []dto.ChatTurnMessage) (dto.ChatTurnMessage, error) {
	f.mu.Lock()
	f.lastModel = model
	f.lastMessages = messages
	f.mu.Unlock()
	if f.chatErr != nil {
		return dto.ChatTurnMessage{}, f.chatErr
	}
	return f.chatReply, nil
}

func (f *fakeLLM) StreamChat(ctx context.Context, model string, messages []dto.ChatTurnMessage) <-chan provider.Delta {
	f.mu.Lock()
	f.lastModel = model
	f.lastMessages = messages
	f.mu.Unlock()

	out := make(chan provider.Delta)
	go func() {
		defer close(out)
		for i, delta := range f.deltas {
			select {
			case out <- delta:
			case <-ctx.Done():
				return
			}
			if f.holdAfter >= 0 && i == f.holdAfter {
				<-ctx.Done()
				return
			}
		}
	}()
	return out
}

func newFakeFactory(llm provider.ILLMProvider) *provider.Factory {
	factory := &provider.Factory{DefaultService: "fake"}
	factory.Register("fake", llm)
	return factory
}
