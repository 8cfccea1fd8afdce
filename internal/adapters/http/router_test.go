package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
)

type chatFake struct {
	answer *domain.Answer
	err    error

	gotQuery   string
	gotHistory []domain.ChatTurn
}

func (c *chatFake) Answer(_ context.Context, query string, history []domain.ChatTurn) (*domain.Answer, error) {
	c.gotQuery = query
	c.gotHistory = history
	if c.err != nil {
		return nil, c.err
	}
	return c.answer, nil
}

type ingestFake struct {
	source *domain.Source
	err    error

	gotFilename string
}

func (i *ingestFake) Upload(_ context.Context, filename, _ string, _ io.Reader) (*domain.Source, error) {
	i.gotFilename = filename
	if i.err != nil {
		return nil, i.err
	}
	return i.source, nil
}

type sourceReaderFake struct {
	source *domain.Source
	err    error
}

func (s *sourceReaderFake) GetByID(context.Context, string) (*domain.Source, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.source, nil
}

type indexFake struct {
	records []domain.Record
	err     error

	gotCategory domain.Category
	gotLimit    int
	gotFilter   domain.SearchFilter
	deletedID   string
}

func (f *indexFake) Upsert(context.Context, domain.Category, []domain.Record, [][]float32) error {
	return nil
}

func (f *indexFake) Search(context.Context, domain.Category, []float32, int, domain.SearchFilter) ([]domain.Candidate, error) {
	return nil, nil
}

func (f *indexFake) Scroll(_ context.Context, category domain.Category, limit int, filter domain.SearchFilter) ([]domain.Record, error) {
	f.gotCategory = category
	f.gotLimit = limit
	f.gotFilter = filter
	return f.records, f.err
}

func (f *indexFake) DeleteByID(_ context.Context, _ domain.Category, recordID string) error {
	f.deletedID = recordID
	return f.err
}

func newTestRouter(chat *chatFake, ingest *ingestFake, reader *sourceReaderFake, index *indexFake) http.Handler {
	if chat == nil {
		chat = &chatFake{answer: &domain.Answer{Text: "ok"}}
	}
	if ingest == nil {
		ingest = &ingestFake{source: &domain.Source{ID: "src-1"}}
	}
	if reader == nil {
		reader = &sourceReaderFake{source: &domain.Source{ID: "src-1"}}
	}
	if index == nil {
		index = &indexFake{}
	}
	return NewRouter(chat, ingest, reader, index, RouterOptions{}).Handler()
}

func TestPostChatReturnsAnswer(t *testing.T) {
	chat := &chatFake{answer: &domain.Answer{
		Text:     "SmartHome melindungi rumah Anda.",
		Category: domain.CategoryProductSales,
	}}
	handler := newTestRouter(chat, nil, nil, nil)

	body := `{"query":"Apa itu SmartHome?","history":[{"role":"user","content":"halo"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
	var answer domain.Answer
	if err := json.NewDecoder(res.Body).Decode(&answer); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if answer.Text != "SmartHome melindungi rumah Anda." || answer.Category != domain.CategoryProductSales {
		t.Fatalf("answer = %+v", answer)
	}
	if chat.gotQuery != "Apa itu SmartHome?" || len(chat.gotHistory) != 1 {
		t.Fatalf("service got query=%q history=%d", chat.gotQuery, len(chat.gotHistory))
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatal("response must echo a request id")
	}
}

func TestPostChatRejectsBlankQuery(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"query":"  "}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestPostChatMapsTemporaryErrorTo503(t *testing.T) {
	chat := &chatFake{err: domain.WrapError(domain.ErrTemporary, "embed", fmt.Errorf("backend down"))}
	handler := newTestRouter(chat, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"query":"q"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", res.Code)
	}
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestUploadSourceAccepted(t *testing.T) {
	ingest := &ingestFake{source: &domain.Source{ID: "src-1", Status: domain.SourceUploaded}}
	handler := newTestRouter(nil, ingest, nil, nil)

	body, contentType := multipartBody(t, "file", "faq.xlsx", "payload")
	req := httptest.NewRequest(http.MethodPost, "/v1/sources", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
	if ingest.gotFilename != "faq.xlsx" {
		t.Fatalf("filename = %q", ingest.gotFilename)
	}
}

func TestUploadSourceRequiresFileField(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	body, contentType := multipartBody(t, "attachment", "faq.xlsx", "payload")
	req := httptest.NewRequest(http.MethodPost, "/v1/sources", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestGetSourceMapsNotFoundTo404(t *testing.T) {
	reader := &sourceReaderFake{err: domain.WrapError(domain.ErrSourceNotFound, "get source", fmt.Errorf("id missing"))}
	handler := newTestRouter(nil, nil, reader, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/sources/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}
}

func TestListRecordsPassesMetadataFilter(t *testing.T) {
	index := &indexFake{records: []domain.Record{{ID: "rec-1"}}}
	handler := newTestRouter(nil, nil, nil, index)

	req := httptest.NewRequest(http.MethodGet,
		"/v1/admin/records?category=product_sales&product_name=SmartHome&limit=10", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
	if index.gotCategory != domain.CategoryProductSales || index.gotLimit != 10 {
		t.Fatalf("scroll got category=%q limit=%d", index.gotCategory, index.gotLimit)
	}
	if index.gotFilter.Metadata["product_name"] != "SmartHome" {
		t.Fatalf("filter = %+v", index.gotFilter)
	}
	if _, ok := index.gotFilter.Metadata["limit"]; ok {
		t.Fatal("limit must not leak into the metadata filter")
	}
}

func TestListRecordsRejectsUnknownCategory(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/records?category=everything", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestDeleteRecordMapsNotFoundTo404(t *testing.T) {
	index := &indexFake{err: domain.WrapError(domain.ErrRecordNotFound, "qdrant delete", fmt.Errorf("record rec-9"))}
	handler := newTestRouter(nil, nil, nil, index)

	req := httptest.NewRequest(http.MethodDelete, "/v1/admin/records/product_sales/rec-9", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}
	if index.deletedID != "rec-9" {
		t.Fatalf("deleted id = %q", index.deletedID)
	}
}
