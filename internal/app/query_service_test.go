package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat/internal/ai"
	"paperchat/internal/model"
)

var testOptions = ai.GenerateOptions{NumPredict: 2048, Temperature: 0.7, TopP: 0.9, TopK: 40}

func newTestQuery(store DocumentStore, backend GenerationBackend, pub ExchangePublisher) (*QueryService, *fakeMetrics) {
	metrics := &fakeMetrics{}
	svc := NewQueryService(store, backend, pub, metrics, zerolog.Nop(), QueryConfig{
		MaxContextLength: 12000,
		Timeout:          time.Second,
		Options:          testOptions,
	})
	return svc, metrics
}

func helloDoc() model.Document {
	return model.Document{
		ID:       "doc1",
		Text:     "Hello World",
		Metadata: model.DocumentMetadata{FileName: "hello.pdf", Title: "hello"},
	}
}

func TestAnswer_ReturnsBackendAnswer(t *testing.T) {
	backend := &fakeBackend{answer: "  It greets the world.\n", model: "llama2"}
	pub := &fakePublisher{}
	svc, metrics := newTestQuery(newMemStore(helloDoc()), backend, pub)

	res, err := svc.Answer(context.Background(), AnswerInput{DocumentID: "doc1", Question: "What is this?"})
	require.NoError(t, err)

	assert.Equal(t, "  It greets the world.\n", res.Answer, "answer is returned verbatim")
	assert.Equal(t, "hello.pdf", res.Metadata.DocumentName)
	assert.Equal(t, "llama2", res.Metadata.Model)

	require.Len(t, backend.prompts, 1)
	assert.Contains(t, backend.prompts[0], "RESEARCH PAPER CONTENT:\nHello World\n\nUSER QUESTION: What is this?")
	assert.Equal(t, testOptions, backend.opts)

	require.Len(t, pub.published, 1)
	assert.Equal(t, "doc1", pub.published[0].DocumentID)
	assert.Equal(t, "What is this?", pub.published[0].Question)
	assert.Equal(t, "llama2", pub.published[0].Model)
	assert.Equal(t, []string{"success"}, metrics.answer)
}

func TestAnswer_TruncatesLongDocuments(t *testing.T) {
	doc := helloDoc()
	doc.Text = strings.Repeat("a", 12000) + strings.Repeat("b", 3000)
	backend := &fakeBackend{answer: "ok"}
	svc, _ := newTestQuery(newMemStore(doc), backend, nil)

	_, err := svc.Answer(context.Background(), AnswerInput{DocumentID: "doc1", Question: "q"})
	require.NoError(t, err)

	require.Len(t, backend.prompts, 1)
	assert.Contains(t, backend.prompts[0], strings.Repeat("a", 12000)+"...\n\nUSER QUESTION: q")
	assert.NotContains(t, backend.prompts[0], "ab")
}

func TestAnswer_UnknownDocumentSkipsBackend(t *testing.T) {
	backend := &fakeBackend{answer: "never"}
	svc, metrics := newTestQuery(newMemStore(helloDoc()), backend, nil)

	_, err := svc.Answer(context.Background(), AnswerInput{DocumentID: "nope", Question: "q"})
	require.ErrorIs(t, err, ErrDocumentNotFound)
	assert.Empty(t, backend.prompts)
	assert.Equal(t, []string{"not_found"}, metrics.answer)
}

func TestAnswer_MissingFields(t *testing.T) {
	backend := &fakeBackend{answer: "never"}
	store := newMemStore(helloDoc())
	svc, _ := newTestQuery(store, backend, nil)

	_, err := svc.Answer(context.Background(), AnswerInput{DocumentID: "doc1", Question: "   "})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Answer(context.Background(), AnswerInput{Question: "q"})
	require.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, backend.prompts)
	assert.Zero(t, store.gets)
}

func TestAnswer_BackendFailure(t *testing.T) {
	backend := &fakeBackend{err: errBoom}
	pub := &fakePublisher{}
	svc, metrics := newTestQuery(newMemStore(helloDoc()), backend, pub)

	_, err := svc.Answer(context.Background(), AnswerInput{DocumentID: "doc1", Question: "q"})
	require.ErrorIs(t, err, ErrGeneration)
	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, pub.published)
	assert.Equal(t, []string{"generation_error"}, metrics.answer)
}

func TestAnswer_EmptyAnswerIsGenerationError(t *testing.T) {
	svc, _ := newTestQuery(newMemStore(helloDoc()), &fakeBackend{answer: " \n"}, nil)

	_, err := svc.Answer(context.Background(), AnswerInput{DocumentID: "doc1", Question: "q"})
	require.ErrorIs(t, err, ErrGeneration)
}

func TestAnswer_Timeout(t *testing.T) {
	backend := &fakeBackend{block: true}
	svc := NewQueryService(newMemStore(helloDoc()), backend, nil, nil, zerolog.Nop(), QueryConfig{
		MaxContextLength: 100,
		Timeout:          20 * time.Millisecond,
	})

	_, err := svc.Answer(context.Background(), AnswerInput{DocumentID: "doc1", Question: "q"})
	require.ErrorIs(t, err, ErrGeneration)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnswer_PublishFailureDoesNotFailAnswer(t *testing.T) {
	svc, _ := newTestQuery(newMemStore(helloDoc()), &fakeBackend{answer: "fine"}, &fakePublisher{err: errBoom})

	res, err := svc.Answer(context.Background(), AnswerInput{DocumentID: "doc1", Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "fine", res.Answer)
}

func TestAnswer_NeverCaches(t *testing.T) {
	backend := &fakeBackend{answer: "a"}
	svc, _ := newTestQuery(newMemStore(helloDoc()), backend, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Answer(context.Background(), AnswerInput{DocumentID: "doc1", Question: "same"})
		require.NoError(t, err)
	}
	assert.Len(t, backend.prompts, 3)
}
