package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/client"
	"github.com/dmitrijs2005/docvault/internal/client/config"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/services"
	"github.com/stretchr/testify/require"

	gs "github.com/dmitrijs2005/docvault/internal/server/grpc"
)

// ------------ fake API ------------

type fakeAPI struct {
	client.Client // unimplemented methods panic

	pingErr error

	registerReq *gs.RegisterRequest
	loginRes    *gs.AuthResponse
	loginErr    error
	logoutErr   error
	verifyPhone *bool
	verified    string

	forgot    string
	resetTok  string
	resetPass string

	uploadReq *gs.UploadDocumentRequest

	viewRes *services.ViewResult
	viewErr error

	statusDoc string
	status    models.ShareStatus

	deactivated bool
	reactivated [2]string
}

func (f *fakeAPI) Close() error               { return nil }
func (f *fakeAPI) Ping(context.Context) error { return f.pingErr }

func (f *fakeAPI) Register(_ context.Context, req *gs.RegisterRequest) (*gs.AuthResponse, error) {
	f.registerReq = req
	return &gs.AuthResponse{User: &models.PublicUser{ID: "u1", PhoneOrEmail: req.PhoneOrEmail}, VerificationToken: "V"}, nil
}

func (f *fakeAPI) Login(context.Context, string, string) (*gs.AuthResponse, error) {
	return f.loginRes, f.loginErr
}

func (f *fakeAPI) Logout(context.Context) error { return f.logoutErr }

func (f *fakeAPI) RequestVerification(_ context.Context, phone bool) error {
	f.verifyPhone = &phone
	return nil
}

func (f *fakeAPI) VerifyEmail(_ context.Context, token string) (*gs.AuthResponse, error) {
	f.verified = token
	return &gs.AuthResponse{
		User:   &models.PublicUser{ID: "u1", IsPhoneOrEmailVerified: true},
		Tokens: &services.TokenPair{AccessToken: "A", RefreshToken: "R"},
	}, nil
}

func (f *fakeAPI) ForgotPassword(_ context.Context, contact string) error {
	f.forgot = contact
	return nil
}

func (f *fakeAPI) ResetPassword(_ context.Context, token, pw string) error {
	f.resetTok, f.resetPass = token, pw
	return nil
}

func (f *fakeAPI) Upload(_ context.Context, req *gs.UploadDocumentRequest) (*models.Document, error) {
	f.uploadReq = req
	return &models.Document{ID: "doc_1", Name: req.Name, Size: int64(len(req.Content))}, nil
}

func (f *fakeAPI) View(context.Context, string, string) (*services.ViewResult, error) {
	return f.viewRes, f.viewErr
}

func (f *fakeAPI) UpdateShareStatus(_ context.Context, docID string, st models.ShareStatus) (*models.Share, error) {
	f.statusDoc, f.status = docID, st
	return &models.Share{DocumentID: docID, Status: st}, nil
}

func (f *fakeAPI) Deactivate(context.Context) error {
	f.deactivated = true
	return nil
}

func (f *fakeAPI) Reactivate(_ context.Context, contact, pw string) (*models.PublicUser, error) {
	f.reactivated = [2]string{contact, pw}
	return &models.PublicUser{ID: "u1", PhoneOrEmail: contact}, nil
}

// ------------ helpers ------------

func readerFromLines(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func newTestApp(t *testing.T, api client.Client, lines ...string) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DownloadDir = t.TempDir()
	return newApp(cfg, api, readerFromLines(lines...), &out), &out
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer, string) (string, error) { return pw, nil }
	t.Cleanup(func() { getPassword = orig })
}

// ------------ auth ------------

func TestRegister_SendsProfileAndHintsVerification(t *testing.T) {
	stubPassword(t, "Passw0rd!")
	api := &fakeAPI{}
	app, out := newTestApp(t, api, "Anna", "Ozola", "1990-02-03", "anna@example.com", "Female")

	require.NoError(t, app.Register(context.Background()))

	require.Equal(t, &gs.RegisterRequest{
		FirstName: "Anna", LastName: "Ozola", DateOfBirth: "1990-02-03",
		Gender: "female", PhoneOrEmail: "anna@example.com", Password: "Passw0rd!",
	}, api.registerReq)
	require.True(t, app.isLoggedIn())
	require.Contains(t, out.String(), "verify email <token>")
}

func TestLogin_Unverified(t *testing.T) {
	stubPassword(t, "pw")
	api := &fakeAPI{loginRes: &gs.AuthResponse{User: &models.PublicUser{PhoneOrEmail: "+37120000000"}, VerificationToken: "V"}}
	app, out := newTestApp(t, api, "+37120000000")

	require.NoError(t, app.Login(context.Background()))
	require.Equal(t, ModeOnline, app.Mode)
	require.Contains(t, out.String(), "verify phone <code>")

	require.NoError(t, app.Verify(context.Background(), []string{"request"}))
	require.NotNil(t, api.verifyPhone)
	require.True(t, *api.verifyPhone)
}

func TestLogin_Failures(t *testing.T) {
	stubPassword(t, "pw")

	api := &fakeAPI{loginErr: errors.New(common.ErrAccountLocked.Error())}
	app, out := newTestApp(t, api, "a@example.com")
	require.Error(t, app.Login(context.Background()))
	require.False(t, app.isLoggedIn())
	require.Contains(t, out.String(), common.ErrAccountLocked.Error())

	api = &fakeAPI{loginErr: client.ErrUnavailable}
	app, _ = newTestApp(t, api, "a@example.com")
	require.ErrorIs(t, app.Login(context.Background()), client.ErrUnavailable)
	require.Equal(t, ModeOffline, app.Mode)
}

func TestVerify(t *testing.T) {
	api := &fakeAPI{}
	app, out := newTestApp(t, api)

	require.ErrorIs(t, app.Verify(context.Background(), nil), errUsage)
	require.ErrorIs(t, app.Verify(context.Background(), []string{"email"}), errUsage)
	require.ErrorIs(t, app.Verify(context.Background(), []string{"request"}), client.ErrNotLoggedIn)

	require.NoError(t, app.Verify(context.Background(), []string{"email", "tok"}))
	require.Equal(t, "tok", api.verified)
	require.True(t, app.isLoggedIn())
	require.Contains(t, out.String(), "Verified")
}

func TestLogout_ForgetsUserEvenWhenServerFails(t *testing.T) {
	api := &fakeAPI{logoutErr: client.ErrUnavailable}
	app, _ := newTestApp(t, api)
	app.user = &models.PublicUser{ID: "u1"}

	require.Error(t, app.Logout(context.Background()))
	require.False(t, app.isLoggedIn())

	api.logoutErr = client.ErrNotLoggedIn
	require.NoError(t, app.Logout(context.Background()))
}

func TestForgotPassword(t *testing.T) {
	stubPassword(t, "N3w-Passw0rd")

	api := &fakeAPI{}
	app, _ := newTestApp(t, api, "a@example.com", "")
	require.NoError(t, app.ForgotPassword(context.Background()))
	require.Equal(t, "a@example.com", api.forgot)
	require.Empty(t, api.resetTok, "empty code finishes without reset")

	api = &fakeAPI{}
	app, _ = newTestApp(t, api, "a@example.com", "reset-token")
	require.NoError(t, app.ForgotPassword(context.Background()))
	require.Equal(t, "reset-token", api.resetTok)
	require.Equal(t, "N3w-Passw0rd", api.resetPass)
}

func TestDeactivateAndReactivate(t *testing.T) {
	stubPassword(t, "Passw0rd!")
	api := &fakeAPI{}
	app, out := newTestApp(t, api, "a@example.com")
	app.user = &models.PublicUser{ID: "u1"}

	require.NoError(t, app.Deactivate(context.Background()))
	require.True(t, api.deactivated)
	require.False(t, app.isLoggedIn())

	require.NoError(t, app.Reactivate(context.Background()))
	require.Equal(t, [2]string{"a@example.com", "Passw0rd!"}, api.reactivated)
	require.Contains(t, out.String(), "reactivated")
}

// ------------ documents ------------

func TestUpload_DerivesTypeAndName(t *testing.T) {
	orig := readFile
	readFile = func(string) ([]byte, error) { return []byte("%PDF"), nil }
	t.Cleanup(func() { readFile = orig })

	api := &fakeAPI{}
	app, out := newTestApp(t, api)

	require.ErrorIs(t, app.Upload(context.Background(), []string{"scan.pdf"}), errUsage)

	require.NoError(t, app.Upload(context.Background(), []string{"/tmp/Scan.PDF", "passport"}))
	require.Equal(t, "Scan", api.uploadReq.Name)
	require.Equal(t, "pdf", api.uploadReq.FileType)
	require.Equal(t, "passport", api.uploadReq.DocumentType)
	require.Equal(t, []byte("%PDF"), api.uploadReq.Content)
	require.Contains(t, out.String(), "doc_1")

	require.NoError(t, app.Upload(context.Background(), []string{"x.png", "photo", "My", "photo"}))
	require.Equal(t, "My photo", api.uploadReq.Name)
}

func TestDownload_SavesIntoDownloadDir(t *testing.T) {
	orig := download
	var gotURL string
	download = func(_ context.Context, url string, w io.Writer) (int64, error) {
		gotURL = url
		n, err := w.Write([]byte("content"))
		return int64(n), err
	}
	t.Cleanup(func() { download = orig })

	api := &fakeAPI{viewRes: &services.ViewResult{
		Document:  &models.Document{ID: "doc_1", Name: "id/card", FileType: models.FileTypePNG},
		URL:       "https://signed",
		ExpiresAt: time.Now().Add(time.Minute),
	}}
	app, _ := newTestApp(t, api)

	require.NoError(t, app.Download(context.Background(), []string{"doc_1", "conn1"}))
	require.Equal(t, "https://signed", gotURL)

	b, err := os.ReadFile(filepath.Join(app.config.DownloadDir, "id_card.png"))
	require.NoError(t, err)
	require.Equal(t, "content", string(b))
}

func TestDownload_RemovesPartialFile(t *testing.T) {
	orig := download
	download = func(context.Context, string, io.Writer) (int64, error) { return 0, errors.New("download failed: 403") }
	t.Cleanup(func() { download = orig })

	api := &fakeAPI{viewRes: &services.ViewResult{Document: &models.Document{ID: "doc_1", FileType: models.FileTypePDF}, URL: "u"}}
	app, _ := newTestApp(t, api)

	require.Error(t, app.Download(context.Background(), []string{"doc_1"}))
	_, err := os.Stat(filepath.Join(app.config.DownloadDir, "doc_1.pdf"))
	require.True(t, os.IsNotExist(err))
}

func TestView_ReportsDenial(t *testing.T) {
	api := &fakeAPI{viewErr: errors.New(common.ErrShareExpired.Error())}
	app, out := newTestApp(t, api)

	require.Error(t, app.View(context.Background(), []string{"doc_1"}))
	require.Contains(t, out.String(), common.ErrShareExpired.Error())
}

func TestRespond(t *testing.T) {
	api := &fakeAPI{}
	app, out := newTestApp(t, api)

	require.ErrorIs(t, app.Respond(context.Background(), nil, models.ShareStatusAccepted), errUsage)
	require.NoError(t, app.Respond(context.Background(), []string{"doc_7"}, models.ShareStatusAccepted))
	require.Equal(t, "doc_7", api.statusDoc)
	require.Equal(t, models.ShareStatusAccepted, api.status)
	require.Contains(t, out.String(), "now accepted")
}

func TestOnlineStatusWatcher(t *testing.T) {
	api := &fakeAPI{pingErr: client.ErrUnavailable}
	app, _ := newTestApp(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	app.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)

	require.Equal(t, ModeOffline, app.Mode)
}
