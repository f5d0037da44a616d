package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credentials"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEndpoints(base string) Endpoints {
	return Endpoints{
		Drive:   base + "/drive",
		Upload:  base + "/upload",
		Docs:    base + "/docs",
		Sheets:  base + "/sheets",
		YouTube: base + "/youtube",
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), testEndpoints(srv.URL)), srv
}

func TestListFolders_QueryAndShape(t *testing.T) {
	var gotQuery map[string][]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/files", r.URL.Path)
		gotQuery = r.URL.Query()
		_, _ = io.WriteString(w, `{"files":[{"id":"f1","name":"Scripts","mimeType":"application/vnd.google-apps.folder"}]}`)
	})

	folders, err := c.ListFolders(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []models.DriveFolder{{ID: "f1", Name: "Scripts"}}, folders)

	assert.Equal(t, "mimeType = 'application/vnd.google-apps.folder' and trashed = false and 'root' in parents", gotQuery["q"][0])
	assert.Equal(t, "folder,name", gotQuery["orderBy"][0])
	assert.Equal(t, "50", gotQuery["pageSize"][0])
}

func TestListFolders_ParentIsQuoted(t *testing.T) {
	var q string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query().Get("q")
		_, _ = io.WriteString(w, `{"files":[]}`)
	})
	folders, err := c.ListFolders(context.Background(), "abc'123")
	require.NoError(t, err)
	assert.Empty(t, folders)
	assert.Contains(t, q, `'abc\'123' in parents`)
}

func TestListFiles_KindFilter(t *testing.T) {
	var q, size string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query().Get("q")
		size = r.URL.Query().Get("pageSize")
		_, _ = io.WriteString(w, `{"files":[{"id":"d1","name":"Script","mimeType":"application/vnd.google-apps.document","modifiedTime":"2024-05-01T10:00:00Z","size":"1024"}]}`)
	})

	files, err := c.ListFiles(context.Background(), KindAll, "")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "2024-05-01T10:00:00Z", files[0].Modified)
	assert.Equal(t, "1024", files[0].Size)
	assert.Contains(t, q, MimeDocument)
	assert.Contains(t, q, MimeSpreadsheet)
	assert.Equal(t, "20", size)

	_, err = c.ListFiles(context.Background(), KindSheet, "folder9")
	require.NoError(t, err)
	assert.NotContains(t, q, MimeDocument)
	assert.Contains(t, q, "'folder9' in parents")
}

func TestParseFileKind(t *testing.T) {
	k, ok := ParseFileKind("")
	assert.True(t, ok)
	assert.Equal(t, KindAll, k)
	k, ok = ParseFileKind("Docs")
	assert.True(t, ok)
	assert.Equal(t, KindDoc, k)
	_, ok = ParseFileKind("slides")
	assert.False(t, ok)
}

func TestReadDocument_ExtractsParagraphText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/docs/documents/doc1", r.URL.Path)
		_, _ = io.WriteString(w, `{
			"title": "My Script",
			"body": {"content": [
				{"sectionBreak": {}},
				{"paragraph": {"elements": [{"textRun": {"content": "Hello "}}, {"textRun": {"content": "world"}}]}},
				{"table": {}},
				{"paragraph": {"elements": [{"inlineObjectElement": {}}, {"textRun": {"content": "Second"}}]}}
			]}
		}`)
	})

	doc, err := c.ReadDocument(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, "My Script", doc.Title)
	assert.Equal(t, "Hello world\nSecond\n", doc.Content)
}

type recordingLog struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingLog) Record(source string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, source+": "+err.Error())
}

func TestReadRange_DefaultAndErrorLogging(t *testing.T) {
	var paths []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.Contains(r.URL.Path, "bad") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"code":400,"message":"Unable to parse range: Nope","status":"INVALID_ARGUMENT"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"range":"Sheet1!A1:E10","values":[["a","b"],["1","2"]]}`)
	})
	rec := &recordingLog{}
	c.Errors = rec

	vals, err := c.ReadRange(context.Background(), "ss1", "")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"a", "b"}, {"1", "2"}}, vals)
	assert.Equal(t, "/sheets/spreadsheets/ss1/values/Sheet1!A1:E10", paths[0])

	_, err = c.ReadRange(context.Background(), "bad", "Nope")
	require.Error(t, err)
	assert.Equal(t, apperr.Upstream, apperr.KindOf(err))
	assert.Equal(t, "Unable to parse range: Nope", apperr.Message(err, ""))
	require.Len(t, rec.entries, 1)
	assert.Contains(t, rec.entries[0], "Sheets API")
}

func TestDo_GoogleUnauthorizedMapsTo401(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
	})
	_, err := c.ListFolders(context.Background(), "")
	assert.Equal(t, http.StatusUnauthorized, apperr.Status(err))
}

func readMultipart(t *testing.T, r *http.Request) (map[string]any, string, []byte) {
	t.Helper()
	mt, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/related", mt)
	mr := multipart.NewReader(r.Body, params["boundary"])

	metaPart, err := mr.NextPart()
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.NewDecoder(metaPart).Decode(&meta))

	mediaPart, err := mr.NextPart()
	require.NoError(t, err)
	media, _ := io.ReadAll(mediaPart)
	return meta, mediaPart.Header.Get("Content-Type"), media
}

func TestCreateDocument_MultipartUpload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/files", r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))
		meta, mediaType, media := readMultipart(t, r)
		assert.Equal(t, "Untitled Script", meta["name"])
		assert.Equal(t, MimeDocument, meta["mimeType"])
		assert.Equal(t, []any{"folder1"}, meta["parents"])
		assert.True(t, strings.HasPrefix(mediaType, "text/plain"))
		assert.Equal(t, "INT. NIGHT", string(media))
		_, _ = io.WriteString(w, `{"id":"new1","name":"Untitled Script","webViewLink":"https://docs.google.com/document/d/new1/edit"}`)
	})

	f, err := c.CreateDocument(context.Background(), "  ", "INT. NIGHT", "folder1")
	require.NoError(t, err)
	assert.Equal(t, "new1", f.ID)
	assert.Equal(t, "https://docs.google.com/document/d/new1/edit", f.WebViewLink)
}

func pngBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeImageDataURI(t *testing.T) {
	b64 := pngBase64(t)

	img, err := DecodeImageDataURI("data:image/png;base64," + b64)
	require.NoError(t, err)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 3, img.Height)

	_, err = DecodeImageDataURI(b64)
	require.NoError(t, err)

	_, err = DecodeImageDataURI("")
	assert.Equal(t, "No image data provided", apperr.Message(err, ""))
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))

	_, err = DecodeImageDataURI("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not an image")))
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))

	_, err = DecodeImageDataURI("data:image/png;base64,!!!")
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))
}

func TestDefaultImageName(t *testing.T) {
	now := time.UnixMilli(1714560000123)
	assert.Equal(t, "generated-image-1714560000123.png", DefaultImageName("png", now))
	assert.Equal(t, "generated-image-1714560000123.jpg", DefaultImageName("jpeg", now))
	assert.Equal(t, "generated-image-1714560000123.png", DefaultImageName("", now))
}

func TestUploadImage_UsesSniffedMime(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		meta, mediaType, media := readMultipart(t, r)
		assert.True(t, strings.HasPrefix(meta["name"].(string), "generated-image-"))
		assert.Equal(t, "image/png", mediaType)
		assert.NotEmpty(t, media)
		_, _ = io.WriteString(w, `{"id":"img1","webViewLink":"https://drive.google.com/file/d/img1/view"}`)
	})
	img, err := DecodeImageDataURI(pngBase64(t))
	require.NoError(t, err)

	f, err := c.UploadImage(context.Background(), img, "", "")
	require.NoError(t, err)
	assert.Equal(t, "img1", f.ID)
}

// fakeSheets emulates just enough of Drive and Sheets for the planner flow.
type fakeSheets struct {
	mu           sync.Mutex
	existingID   string
	hasPlanner   bool
	creates      int32
	addSheets    int
	moved        []string
	appends      [][]any
	appendRanges []string
	findDelay    time.Duration
}

func (f *fakeSheets) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		switch {
		case r.Method == http.MethodGet && p == "/drive/files":
			if f.findDelay > 0 {
				time.Sleep(f.findDelay)
			}
			assert.Contains(t, r.URL.Query().Get("q"), "name = 'Nocturnal Content Planner'")
			f.mu.Lock()
			id := f.existingID
			f.mu.Unlock()
			if id == "" {
				_, _ = io.WriteString(w, `{"files":[]}`)
				return
			}
			_, _ = io.WriteString(w, `{"files":[{"id":"`+id+`","name":"Nocturnal Content Planner"}]}`)
		case r.Method == http.MethodPost && p == "/sheets/spreadsheets":
			var body spreadsheet
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, PlannerSpreadsheetName, body.Properties.Title)
			assert.Equal(t, PlannerSheetTitle, body.Sheets[0].Properties.Title)
			atomic.AddInt32(&f.creates, 1)
			_, _ = io.WriteString(w, `{"spreadsheetId":"created1"}`)
		case r.Method == http.MethodPatch && strings.HasPrefix(p, "/drive/files/"):
			f.mu.Lock()
			f.moved = append(f.moved, strings.TrimPrefix(p, "/drive/files/")+"->"+r.URL.Query().Get("addParents"))
			f.mu.Unlock()
			_, _ = io.WriteString(w, `{"id":"created1"}`)
		case r.Method == http.MethodGet && strings.HasPrefix(p, "/sheets/spreadsheets/") && !strings.Contains(p, "/values/"):
			if f.hasPlanner {
				_, _ = io.WriteString(w, `{"sheets":[{"properties":{"title":"Planner"}}]}`)
				return
			}
			_, _ = io.WriteString(w, `{"sheets":[{"properties":{"title":"Sheet1"}}]}`)
		case r.Method == http.MethodPost && strings.HasSuffix(p, ":batchUpdate"):
			f.mu.Lock()
			f.addSheets++
			f.mu.Unlock()
			_, _ = io.WriteString(w, `{}`)
		case r.Method == http.MethodPost && strings.HasSuffix(p, ":append"):
			assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
			var body valueRange
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.mu.Lock()
			f.appends = append(f.appends, body.Values...)
			f.appendRanges = append(f.appendRanges, p)
			f.mu.Unlock()
			_, _ = io.WriteString(w, `{}`)
		default:
			t.Errorf("unexpected call %s %s", r.Method, p)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestAppendPlannerRow_CreatesSpreadsheetWithHeader(t *testing.T) {
	fake := &fakeSheets{}
	c, _ := newTestClient(t, fake.handler(t))

	item := models.PlannerItem{ID: "1", Date: "2024-05-01", Platform: "linkedin", Topic: "AI tools", Prompt: "p", Status: "planned"}
	id, err := c.AppendPlannerRow(context.Background(), "folder1", item)
	require.NoError(t, err)
	assert.Equal(t, "created1", id)
	assert.Equal(t, int32(1), fake.creates)
	assert.Equal(t, []string{"created1->folder1"}, fake.moved)
	require.Len(t, fake.appends, 2)
	assert.Equal(t, []any{"ID", "Date", "Platform", "Topic", "Prompt", "Status"}, fake.appends[0])
	assert.Equal(t, []any{"1", "2024-05-01", "linkedin", "AI tools", "p", "planned"}, fake.appends[1])
	assert.Equal(t, "/sheets/spreadsheets/created1/values/Planner!A1:append", fake.appendRanges[1])
}

func TestAppendPlannerRow_ExistingSpreadsheetAddsMissingTab(t *testing.T) {
	fake := &fakeSheets{existingID: "old1"}
	c, _ := newTestClient(t, fake.handler(t))

	id, err := c.AppendPlannerRow(context.Background(), "", models.PlannerItem{ID: "2"})
	require.NoError(t, err)
	assert.Equal(t, "old1", id)
	assert.Equal(t, int32(0), fake.creates)
	assert.Equal(t, 1, fake.addSheets)
	require.Len(t, fake.appends, 2)
	assert.Equal(t, "ID", fake.appends[0][0])
}

func TestAppendPlannerRow_ExistingPlannerTabOnlyAppends(t *testing.T) {
	fake := &fakeSheets{existingID: "old1", hasPlanner: true}
	c, _ := newTestClient(t, fake.handler(t))

	_, err := c.AppendPlannerRow(context.Background(), "", models.PlannerItem{ID: "3"})
	require.NoError(t, err)
	assert.Equal(t, 0, fake.addSheets)
	require.Len(t, fake.appends, 1)
	assert.Equal(t, "3", fake.appends[0][0])
}

func TestEnsurePlannerSpreadsheet_ConcurrentCallsDoNotCrash(t *testing.T) {
	fake := &fakeSheets{findDelay: 50 * time.Millisecond}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	factory := NewClientFactory(nil, 5*time.Second, 100, 10, testEndpoints(srv.URL), nil)
	cred := &credentials.Credential{Provider: credentials.Google, AccessToken: "same-user"}

	var wg sync.WaitGroup
	ids := make([]string, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = factory.ForCredential(context.Background(), cred).EnsurePlannerSpreadsheet(context.Background(), "")
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, "created1", ids[i])
	}
	// Collapsed in-process; across processes this is not guaranteed.
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.creates))
}

func TestEnsurePlannerSpreadsheet_FirstCallerCancelDoesNotFailOthers(t *testing.T) {
	fake := &fakeSheets{findDelay: 150 * time.Millisecond}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	factory := NewClientFactory(nil, 5*time.Second, 100, 10, testEndpoints(srv.URL), nil)
	cred := &credentials.Credential{Provider: credentials.Google, AccessToken: "same-user"}

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := factory.ForCredential(context.Background(), cred).EnsurePlannerSpreadsheet(firstCtx, "")
		first <- err
	}()
	time.Sleep(30 * time.Millisecond)

	second := make(chan error, 1)
	var id string
	go func() {
		var err error
		id, err = factory.ForCredential(context.Background(), cred).EnsurePlannerSpreadsheet(context.Background(), "")
		second <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	require.NoError(t, <-second)
	assert.Equal(t, "created1", id)
	<-first
}

func TestOwnerKey(t *testing.T) {
	a := ownerKey(&credentials.Credential{AccessToken: "t1"})
	b := ownerKey(&credentials.Credential{AccessToken: "t2"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, "acct", ownerKey(&credentials.Credential{AccountID: "acct", AccessToken: "t1"}))
}
