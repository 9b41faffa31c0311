package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aidesbz/shortlink/internal/config"
	"github.com/aidesbz/shortlink/internal/processing/bulkimport"
	"github.com/aidesbz/shortlink/internal/processing/shortlinks"
	"github.com/xuri/excelize/v2"
)

// --- In-memory fakes ---

type fakeLinkRepo struct {
	mu       sync.Mutex
	links    map[string]*shortlinks.Link
	failFind bool
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: map[string]*shortlinks.Link{}}
}

func (f *fakeLinkRepo) Insert(_ context.Context, link *shortlinks.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.links[link.Code]; ok {
		return shortlinks.ErrCodeTaken
	}
	clone := *link
	f.links[link.Code] = &clone
	return nil
}

func (f *fakeLinkRepo) FindByCode(_ context.Context, code string) (*shortlinks.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFind {
		return nil, errors.New("store unavailable")
	}
	link, ok := f.links[code]
	if !ok {
		return nil, shortlinks.ErrNotFound
	}
	clone := *link
	return &clone, nil
}

func (f *fakeLinkRepo) IncClicks(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[code]
	if !ok {
		return shortlinks.ErrNotFound
	}
	link.Clicks++
	return nil
}

func (f *fakeLinkRepo) SumClicksByCampaign(_ context.Context, campaign string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, link := range f.links {
		if link.Campaign == campaign {
			total += link.Clicks
		}
	}
	return total, nil
}

func (f *fakeLinkRepo) FindCreatedBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var codes []string
	for code, link := range f.links {
		if link.CreatedAt.Before(cutoff) {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func (f *fakeLinkRepo) DeleteByCodes(_ context.Context, codes []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for _, code := range codes {
		if _, ok := f.links[code]; ok {
			delete(f.links, code)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeLinkRepo) clicks(code string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if link, ok := f.links[code]; ok {
		return link.Clicks
	}
	return -1
}

type fakeBlockRepo struct {
	mu      sync.Mutex
	blocked map[string]bool
}

func newFakeBlockRepo() *fakeBlockRepo {
	return &fakeBlockRepo{blocked: map[string]bool{}}
}

func (f *fakeBlockRepo) IsBlocked(_ context.Context, ip string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocked[ip], nil
}

func (f *fakeBlockRepo) Block(_ context.Context, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked[ip] = true
	return nil
}

func (f *fakeBlockRepo) Unblock(_ context.Context, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blocked, ip)
	return nil
}

func (f *fakeBlockRepo) isBlocked(ip string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocked[ip]
}

// --- Harness ---

type harness struct {
	router    http.Handler
	linkRepo  *fakeLinkRepo
	blockRepo *fakeBlockRepo
	cfg       *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{Name: "shortlink-test"},
		Shortener: config.ShortenerConfig{
			BaseURL:        "https://aides.bz",
			CodeLength:     5,
			RedirectStatus: http.StatusFound,
		},
		Retention: config.RetentionConfig{
			Cutoff: time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
		},
	}

	linkRepo := newFakeLinkRepo()
	blockRepo := newFakeBlockRepo()
	svc := shortlinks.NewService(linkRepo, blockRepo, shortlinks.NewCryptoCoder(), nil, cfg.Shortener.BaseURL, cfg.Shortener.CodeLength)
	importer := bulkimport.NewImporter(svc)

	opts := RouterOptions{
		LinksHandlerOptions: LinksHandlerOptions{
			AsyncClick:   false, // deterministic click counting in tests
			ClickTimeout: time.Second,
		},
	}

	return &harness{
		router:    NewRouterWithOptions(cfg, svc, importer, blockRepo, opts),
		linkRepo:  linkRepo,
		blockRepo: blockRepo,
		cfg:       cfg,
	}
}

func (h *harness) seedLink(code, url, campaign string, clicks int64, createdAt time.Time) {
	h.linkRepo.mu.Lock()
	defer h.linkRepo.mu.Unlock()
	h.linkRepo.links[code] = &shortlinks.Link{
		Code:      code,
		URL:       url,
		Short:     "https://aides.bz/" + code,
		Campaign:  campaign,
		Clicks:    clicks,
		CreatedAt: createdAt,
	}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// --- Redirect ---

func TestRedirect_HitRedirectsAndCounts(t *testing.T) {
	h := newHarness(t)
	h.seedLink("aB3xZ", "https://example.com/dest", "c1", 0, time.Now())

	rec := h.do(httptest.NewRequest(http.MethodGet, "/aB3xZ", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "https://example.com/dest" {
		t.Errorf("Location = %q, want destination url", loc)
	}
	if got := h.linkRepo.clicks("aB3xZ"); got != 1 {
		t.Errorf("clicks = %d, want 1", got)
	}
}

func TestRedirect_EachHitCountsOnce(t *testing.T) {
	h := newHarness(t)
	h.seedLink("aB3xZ", "https://example.com", "c1", 0, time.Now())

	for i := 0; i < 3; i++ {
		h.do(httptest.NewRequest(http.MethodGet, "/aB3xZ", nil))
	}

	if got := h.linkRepo.clicks("aB3xZ"); got != 3 {
		t.Errorf("clicks = %d, want 3", got)
	}
}

func TestRedirect_UnknownCodeBlocksProber(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/nope1", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := h.do(req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusNotFound)
	}
	if !h.blockRepo.isBlocked("203.0.113.9") {
		t.Error("prober ip must be auto-blocked")
	}

	// Any subsequent request from the same IP is now gated.
	req2 := httptest.NewRequest(http.MethodGet, "/campaign/c1", nil)
	req2.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec2 := h.do(req2)

	if rec2.Code != http.StatusForbidden {
		t.Errorf("gated request: got status %d, want %d", rec2.Code, http.StatusForbidden)
	}
}

func TestRedirect_StoreErrorDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	h.linkRepo.failFind = true

	req := httptest.NewRequest(http.MethodGet, "/aB3xZ", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := h.do(req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if h.blockRepo.isBlocked("203.0.113.9") {
		t.Error("store error must not auto-block the caller")
	}
}

// --- Unblock ---

func TestUnblock_RestoresAccess(t *testing.T) {
	h := newHarness(t)
	h.seedLink("aB3xZ", "https://example.com", "c1", 0, time.Now())
	_ = h.blockRepo.Block(context.Background(), "203.0.113.9")

	body := strings.NewReader(`{"ipToUnblock":"203.0.113.9"}`)
	rec := h.do(httptest.NewRequest(http.MethodPost, "/unblock-ip", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	if h.blockRepo.isBlocked("203.0.113.9") {
		t.Error("ip must be unblocked")
	}

	req := httptest.NewRequest(http.MethodGet, "/aB3xZ", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if rec := h.do(req); rec.Code != http.StatusFound {
		t.Errorf("post-unblock request: got status %d, want %d", rec.Code, http.StatusFound)
	}
}

func TestUnblock_RejectsInvalidIP(t *testing.T) {
	h := newHarness(t)

	body := strings.NewReader(`{"ipToUnblock":"not-an-ip"}`)
	rec := h.do(httptest.NewRequest(http.MethodPost, "/unblock-ip", body))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUnblock_RejectsMalformedBody(t *testing.T) {
	h := newHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodPost, "/unblock-ip", strings.NewReader("{")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// --- Campaign ---

func TestCampaign_SumsOnlyMatchingLinks(t *testing.T) {
	h := newHarness(t)
	h.seedLink("cccc1", "https://example.com/1", "spring", 5, time.Now())
	h.seedLink("cccc2", "https://example.com/2", "spring", 7, time.Now())
	h.seedLink("other", "https://example.com/3", "autumn", 100, time.Now())

	rec := h.do(httptest.NewRequest(http.MethodGet, "/campaign/spring", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Campaign string `json:"campaign"`
		Clicks   int64  `json:"clicks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Campaign != "spring" || resp.Clicks != 12 {
		t.Errorf("got %+v, want {spring 12}", resp)
	}
}

func TestCampaign_IDMayContainSlashes(t *testing.T) {
	h := newHarness(t)
	h.seedLink("cccc1", "https://example.com", "fr/sud/2025", 3, time.Now())

	rec := h.do(httptest.NewRequest(http.MethodGet, "/campaign/fr/sud/2025", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Campaign string `json:"campaign"`
		Clicks   int64  `json:"clicks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Campaign != "fr/sud/2025" || resp.Clicks != 3 {
		t.Errorf("got %+v, want {fr/sud/2025 3}", resp)
	}
}

func TestCampaign_UnknownCampaignSumsToZero(t *testing.T) {
	h := newHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/campaign/ghost", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"clicks":0`) {
		t.Errorf("body = %s, want zero clicks", rec.Body.String())
	}
}

// --- Retention ---

func TestDeleteOldLinks(t *testing.T) {
	h := newHarness(t)
	h.seedLink("old01", "https://example.com/old", "c", 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	h.seedLink("new01", "https://example.com/new", "c", 1, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	rec := h.do(httptest.NewRequest(http.MethodDelete, "/delete-old-links", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "LINKS_PURGED") {
		t.Errorf("body = %s, want purge confirmation", rec.Body.String())
	}
	if _, err := h.linkRepo.FindByCode(context.Background(), "old01"); !errors.Is(err, shortlinks.ErrNotFound) {
		t.Error("record before cutoff must be deleted")
	}
	if _, err := h.linkRepo.FindByCode(context.Background(), "new01"); err != nil {
		t.Error("record after cutoff must be retained")
	}

	// Second run finds nothing.
	rec2 := h.do(httptest.NewRequest(http.MethodDelete, "/delete-old-links", nil))
	if rec2.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec2.Code, http.StatusOK)
	}
	if !strings.Contains(rec2.Body.String(), "NO_OLD_LINKS") {
		t.Errorf("body = %s, want no-op confirmation", rec2.Body.String())
	}
}

// --- Upload ---

func buildUpload(t *testing.T, rows [][]string) (*bytes.Buffer, string) {
	t.Helper()

	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)
	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := wb.SetCellStr(sheet, cell, value); err != nil {
				t.Fatal(err)
			}
		}
	}
	wbBuf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("xlsxFile", "input.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(wbBuf.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	return body, mw.FormDataContentType()
}

func TestUpload_TransformsWorkbook(t *testing.T) {
	h := newHarness(t)

	body, contentType := buildUpload(t, [][]string{
		{"nom", "prenom", "mail", "phone", "lien", "civilite", "code", "code_postal", "utm", "ville"},
		{"Dupont", "Jean", "j@d.fr", "0611111111", "https://example.com/offer", "M", "", "75001", "spring", "Paris"},
	})

	req := httptest.NewRequest(http.MethodPost, "/upload-file", body)
	req.Header.Set("Content-Type", contentType)
	rec := h.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "parsed_input.xlsx") {
		t.Errorf("Content-Disposition = %q, want parsed_ filename", cd)
	}

	out, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()
	rows, err := out.GetRows(out.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("output has %d rows, want 2", len(rows))
	}
	if !strings.HasPrefix(rows[1][4], "https://aides.bz/") {
		t.Errorf("url cell = %q, want short link", rows[1][4])
	}

	// Exactly one record persisted, starting at zero clicks.
	h.linkRepo.mu.Lock()
	defer h.linkRepo.mu.Unlock()
	if len(h.linkRepo.links) != 1 {
		t.Fatalf("persisted %d records, want 1", len(h.linkRepo.links))
	}
	for _, link := range h.linkRepo.links {
		if link.Clicks != 0 {
			t.Errorf("new record clicks = %d, want 0", link.Clicks)
		}
		if link.Campaign != "spring" {
			t.Errorf("new record campaign = %q, want spring", link.Campaign)
		}
	}
}

func TestUpload_MissingFile(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/upload-file", nil)
	rec := h.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status || resp.Message != "No file uploaded" {
		t.Errorf("got %+v, want {false No file uploaded}", resp)
	}
}

// --- Landing ---

func TestLandingPage(t *testing.T) {
	h := newHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type = %q, want html", ct)
	}
}
