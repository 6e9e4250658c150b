package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flocknet/flockd/internal/errs"
	"github.com/flocknet/flockd/internal/model"
	"github.com/flocknet/flockd/internal/service"
)

const (
	testToken   = "00112233445566778899aabbccddeeff"
	testKey     = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	testFlockA  = "aabbccddeeff0000"
	testFlockB  = "1122334455667700"
	testDevice  = "deadbeef"
	testAccount = int64(7)
)

type fakeSessions struct {
	auth        model.AuthContext
	validateErr error
	initErr     error
	loginErr    error
	addedTime   bool
	deleted     bool
}

var _ service.SessionService = (*fakeSessions)(nil)

func (f *fakeSessions) Register(context.Context) (service.Credentials, error) {
	return service.Credentials{Token: testToken, AccountID: testAccount, AccountKey: testKey}, nil
}

func (f *fakeSessions) Init(context.Context, string) (service.Credentials, error) {
	if f.initErr != nil {
		return service.Credentials{}, f.initErr
	}
	return service.Credentials{Token: testToken, AccountID: testAccount}, nil
}

func (f *fakeSessions) Login(context.Context, string) (service.Credentials, error) {
	if f.loginErr != nil {
		return service.Credentials{}, f.loginErr
	}
	return service.Credentials{Token: testToken, AccountID: testAccount}, nil
}

func (f *fakeSessions) Issue(context.Context, int64, model.Channel) (string, error) {
	return testToken, nil
}

func (f *fakeSessions) Validate(_ context.Context, token string, ch model.Channel) (model.AuthContext, error) {
	if f.validateErr != nil {
		return model.AuthContext{}, f.validateErr
	}
	if token != testToken {
		return model.AuthContext{}, errs.ErrUnauthorized
	}
	auth := f.auth
	auth.Channel = ch
	return auth, nil
}

func (f *fakeSessions) AddTime(context.Context, int64) error {
	f.addedTime = true
	return nil
}

func (f *fakeSessions) DeleteAccount(context.Context, int64) error {
	f.deleted = true
	return nil
}

func (f *fakeSessions) RunReaper(context.Context) {}

type fakeFlocks struct {
	createID  string
	createErr error
	deleteErr error
	flocks    []model.Flock
}

var _ service.FlockService = (*fakeFlocks)(nil)

func (f *fakeFlocks) Create(context.Context, int64, int) (string, error) {
	return f.createID, f.createErr
}

func (f *fakeFlocks) List(context.Context, int64) ([]model.Flock, error) { return f.flocks, nil }

func (f *fakeFlocks) Delete(context.Context, int64, string) error { return f.deleteErr }

func (f *fakeFlocks) ResolveOwned(context.Context, int64, string) (*model.Flock, error) {
	return nil, errs.ErrNotFoundOrForbidden
}

func (f *fakeFlocks) ResolveAny(context.Context, string) (*model.Flock, error) {
	return nil, errs.ErrNotFound
}

func (f *fakeFlocks) StampAmbryUpdate(context.Context, int64, string, int64) error { return nil }

type fakeDevices struct {
	enrollment *model.Enrollment
	enrollErr  error
	devices    []model.Device
	approve    service.ApprovalResult
	approveErr error
}

var _ service.DeviceService = (*fakeDevices)(nil)

func (f *fakeDevices) Enroll(_ context.Context, flock string, cosk []byte) (*model.Enrollment, error) {
	if len(cosk) != 32 {
		return nil, errs.ErrSizeInvalid
	}
	if f.enrollErr != nil {
		return nil, f.enrollErr
	}
	e := *f.enrollment
	e.Flock = flock
	return &e, nil
}

func (f *fakeDevices) List(context.Context, int64, string) ([]model.Device, error) {
	return f.devices, nil
}

func (f *fakeDevices) Delete(context.Context, int64, string, string) (string, error) {
	return testDevice + " deleted", nil
}

func (f *fakeDevices) Approve(context.Context, int64, string, string) (service.ApprovalResult, error) {
	return f.approve, f.approveErr
}

type fakeLinks struct {
	result    service.LinkResult
	createErr error
}

var _ service.TrustLinkService = (*fakeLinks)(nil)

func (f *fakeLinks) Create(context.Context, int64, string, string) (service.LinkResult, error) {
	return f.result, f.createErr
}

func (f *fakeLinks) ExistsBidirectional(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeLinks) Delete(context.Context, int64, string, string) error {
	return errs.ErrNotFoundOrForbidden
}

func (f *fakeLinks) ListForOwner(context.Context, int64) ([]model.TrustLink, error) {
	return []model.TrustLink{{Src: testFlockA, Dst: testFlockB, Owner: testAccount}}, nil
}

func (f *fakeLinks) ListForFlock(context.Context, int64, string) ([]model.TrustLink, error) {
	return nil, nil
}

type fakeAmbries struct {
	singleErr    error
	bilateralErr error
}

var _ service.AmbryService = (*fakeAmbries)(nil)

func (f *fakeAmbries) PublishSingle(context.Context, int64, string, []byte) error {
	return f.singleErr
}

func (f *fakeAmbries) PublishBilateral(context.Context, int64, string, string, []byte) error {
	return f.bilateralErr
}

type fakeCathedrals struct{ rows []model.Cathedral }

func (f *fakeCathedrals) List(context.Context) ([]model.Cathedral, error) { return f.rows, nil }

type fakeLimiter struct {
	allowed bool
	err     error
}

func (f *fakeLimiter) Check(context.Context, string, string) (bool, error) {
	return f.allowed, f.err
}

type fixture struct {
	sessions *fakeSessions
	flocks   *fakeFlocks
	devices  *fakeDevices
	links    *fakeLinks
	ambries  *fakeAmbries
	limiter  *fakeLimiter
	handler  http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		sessions: &fakeSessions{auth: model.AuthContext{
			AccountID:  testAccount,
			AccountKey: testKey,
			FlocksMax:  5,
			TimeLeft:   3600,
		}},
		flocks: &fakeFlocks{createID: testFlockA},
		devices: &fakeDevices{enrollment: &model.Enrollment{
			CathedralID:     testDevice,
			CathedralSecret: testKey,
		}},
		links:   &fakeLinks{},
		ambries: &fakeAmbries{},
		limiter: &fakeLimiter{allowed: true},
	}
	f.handler = NewRouter(Services{
		Sessions:   f.sessions,
		Flocks:     f.flocks,
		Devices:    f.devices,
		Links:      f.links,
		Ambries:    f.ambries,
		Cathedrals: &fakeCathedrals{rows: []model.Cathedral{{IP: "10.0.0.5", Port: 4500, Descr: "main"}}},
	}, f.limiter, zap.NewNop(), Config{Cathedral: "10.0.0.5:4500", NATPort: "4501", Dev: true})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body []byte, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.RemoteAddr = "10.1.2.3:55000"
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func asAPI(req *http.Request) { req.Header.Set("x-token", testToken) }

func asWeb(req *http.Request) {
	req.AddCookie(&http.Cookie{Name: "token", Value: testToken})
}

func TestRouter_Register(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodPost, "/v1/register", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, testToken, resp["token"])
	require.Equal(t, testKey, resp["account"])
	require.Equal(t, float64(testAccount), resp["share_id"])
	require.Equal(t, "10.0.0.5:4500", resp["cathedral"])
	require.Equal(t, "4501", resp["natport"])
}

func TestRouter_InitUnknownKeyGetsDecoy(t *testing.T) {
	f := newFixture()
	f.sessions.initErr = errs.ErrNotFound

	w := f.do(t, http.MethodPost, "/v1/init", []byte("whatever"))
	require.Equal(t, http.StatusOK, w.Code)

	// decoy carries cathedral coordinates only, nothing confirming the key
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "10.0.0.5:4500", resp["cathedral"])
	require.NotContains(t, resp, "token")
	require.NotContains(t, resp, "share_id")
}

func TestRouter_EnrollNeedsNoToken(t *testing.T) {
	f := newFixture()
	cosk := bytes.Repeat([]byte{1}, 32)

	w := f.do(t, http.MethodPost, "/v1/device/"+testFlockA+"/create", cosk)
	require.Equal(t, http.StatusOK, w.Code)

	var enr model.Enrollment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enr))
	require.Equal(t, testDevice, enr.CathedralID)
	require.Equal(t, testFlockA, enr.Flock)
}

func TestRouter_EnrollRejectsBadCosk(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodPost, "/v1/device/"+testFlockA+"/create", []byte("short"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid cosk", w.Body.String())
}

func TestRouter_InitStorageFailureIsNotADecoy(t *testing.T) {
	f := newFixture()
	f.sessions.initErr = context.DeadlineExceeded

	w := f.do(t, http.MethodPost, "/v1/init", []byte(testKey))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "internal error", w.Body.String())
}

func TestRouter_DeviceListFieldNames(t *testing.T) {
	f := newFixture()
	f.devices.devices = []model.Device{{ID: testDevice, Slot: 3, Approved: true}}

	w := f.do(t, http.MethodGet, "/v1/device/list/"+testFlockA, nil, asAPI)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Devices []map[string]any `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Devices, 1)
	require.Equal(t, testDevice, resp.Devices[0]["device_cathedral_id"])
	require.Equal(t, float64(3), resp.Devices[0]["device_kek"])
	require.Equal(t, true, resp.Devices[0]["device_approved"])
	require.Contains(t, resp.Devices[0], "device_created")
}

func TestRouter_APIWithoutTokenIsBare403(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodGet, "/v1/flock/list", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Empty(t, w.Body.String())
}

func TestRouter_WebWithoutCookieRedirectsToLogin(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodGet, "/account/", nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/account/login", w.Header().Get("Location"))
}

func TestRouter_LapsedAccountOnAPIIsDenied(t *testing.T) {
	f := newFixture()
	f.sessions.auth.Lapsed = true
	f.sessions.auth.TimeLeft = 0

	w := f.do(t, http.MethodGet, "/v1/flock/list", nil, asAPI)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "account expired", w.Body.String())
}

func TestRouter_LapsedAccountKeepsWebSelfService(t *testing.T) {
	f := newFixture()
	f.sessions.auth.Lapsed = true
	f.sessions.auth.TimeLeft = 0

	w := f.do(t, http.MethodGet, "/account/", nil, asWeb)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/account/time", nil, asWeb)
	require.Equal(t, http.StatusFound, w.Code)
	require.True(t, f.sessions.addedTime)
}

func TestRouter_RateLimiter(t *testing.T) {
	f := newFixture()
	f.limiter.allowed = false

	w := f.do(t, http.MethodPost, "/v1/register", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// a limiter failure never takes the service down
	f.limiter.err = context.DeadlineExceeded
	w = f.do(t, http.MethodPost, "/v1/register", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_LoginSetsScopedCookie(t *testing.T) {
	f := newFixture()
	form := url.Values{"account": {testKey}}
	w := f.do(t, http.MethodPost, "/account/login", []byte(form.Encode()), func(req *http.Request) {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/account/", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "token", cookies[0].Name)
	require.Equal(t, testToken, cookies[0].Value)
	require.Equal(t, "/account/", cookies[0].Path)
	require.True(t, cookies[0].HttpOnly)
}

func TestRouter_LoginRejectsMalformedKey(t *testing.T) {
	f := newFixture()
	form := url.Values{"account": {"not-a-key"}}
	w := f.do(t, http.MethodPost, "/account/login", []byte(form.Encode()), func(req *http.Request) {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_FlockQuotaIsAcknowledged(t *testing.T) {
	f := newFixture()
	f.flocks.createErr = errs.ErrQuotaExceeded

	w := f.do(t, http.MethodPost, "/v1/flock/create", nil, asAPI)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "reached max flocks per account", w.Body.String())
}

func TestRouter_FlockDeleteMissIsAcknowledged(t *testing.T) {
	f := newFixture()
	f.flocks.deleteErr = errs.ErrNotFoundOrForbidden

	w := f.do(t, http.MethodPost, "/v1/flock/"+testFlockA+"/delete", nil, asAPI)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "no such flock", w.Body.String())
}

func TestRouter_ApproveExhaustion(t *testing.T) {
	f := newFixture()
	f.devices.approveErr = errs.ErrResourceExhausted

	w := f.do(t, http.MethodPost, "/v1/device/"+testFlockA+"/"+testDevice+"/approve", nil, asAPI)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "no available KEK ids left", w.Body.String())
}

func TestRouter_ApproveForeignFlockIsBare403(t *testing.T) {
	f := newFixture()
	f.devices.approveErr = errs.ErrNotFoundOrForbidden

	w := f.do(t, http.MethodPost, "/v1/device/"+testFlockA+"/"+testDevice+"/approve", nil, asAPI)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Empty(t, w.Body.String())
}

func TestRouter_LinkCreateRejectsSelfLink(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodPost, "/v1/xflock/"+testFlockA+"/"+testFlockA+"/create", nil, asAPI)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_AmbryDenialsAreUniform(t *testing.T) {
	f := newFixture()
	blob := []byte("blob")

	// self-pair is denied before any service call
	w := f.do(t, http.MethodPost, "/v1/ambry/"+testFlockA+"/"+testFlockA, blob, asAPI)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "bad request", w.Body.String())

	f.ambries.singleErr = errs.ErrSizeInvalid
	w = f.do(t, http.MethodPost, "/v1/ambry/"+testFlockA, blob, asAPI)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "bad request, invalid length", w.Body.String())

	f.ambries.bilateralErr = errs.ErrNotEstablished
	w = f.do(t, http.MethodPost, "/v1/ambry/"+testFlockA+"/"+testFlockB, blob, asAPI)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "bad request", w.Body.String())
}

func TestRouter_AmbryUploadOK(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodPost, "/v1/ambry/"+testFlockA, []byte("blob"), asAPI)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ambry uploaded", w.Body.String())
}

func TestRouter_AmbryBodyOverCapIsRejected(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodPost, "/v1/ambry/"+testFlockA, make([]byte, maxBody+1), asAPI)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "bad request, invalid length", w.Body.String())
}

func TestRouter_CathedralListing(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodGet, "/v1/cathedrals", nil, asAPI)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "main - 10.0.0.5:4500\n", w.Body.String())
}

func TestRouter_LinkList(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodGet, "/v1/xflock/list", nil, asAPI)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), testFlockA))
	require.True(t, strings.Contains(w.Body.String(), testFlockB))
}

func TestRouter_AccountDelete(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodPost, "/account/delete", nil, asWeb)
	require.Equal(t, http.StatusFound, w.Code)
	require.True(t, f.sessions.deleted)
}

func TestRouter_AccountView(t *testing.T) {
	f := newFixture()
	f.flocks.flocks = []model.Flock{{ID: testFlockA, Owner: testAccount}}

	w := f.do(t, http.MethodGet, "/account/", nil, asWeb)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, float64(testAccount), resp["id"])
	require.Equal(t, testKey, resp["account"])
	require.Equal(t, float64(5), resp["flocks_max"])
}
