package paradox

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu            sync.Mutex
	authenticated bool
	logins        int
	loginErr      error
	noPanel       bool

	statusFn func() ([]Area, error)

	areaCalls [][]AreaCommand
	areaErr   error

	recordingCode    int
	recordingErr     error
	recordingActions []RecordingAction

	manifest        string
	manifestErr     error
	manifestFetches int
}

func (f *fakeTransport) Login(context.Context) (*LoginData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.authenticated = true
	data := &LoginData{
		Module: UnitInfo{Model: "HD77", Serial: "A23F0099", Version: "1.24.3"},
	}
	if !f.noPanel {
		data.Panel = &UnitInfo{Model: "SP4000", Serial: "C51D2213", Version: "6.80.4"}
	}
	return data, nil
}

func (f *fakeTransport) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

func (f *fakeTransport) setAuthenticated(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authenticated = v
}

func (f *fakeTransport) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeTransport) Status(context.Context) ([]Area, error) {
	if f.statusFn != nil {
		return f.statusFn()
	}
	return nil, nil
}

func (f *fakeTransport) AreaControl(_ context.Context, cmds []AreaCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.areaErr != nil {
		return f.areaErr
	}
	f.areaCalls = append(f.areaCalls, cmds)
	return nil
}

func (f *fakeTransport) Recording(_ context.Context, action RecordingAction) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordingErr != nil {
		return 0, f.recordingErr
	}
	f.recordingActions = append(f.recordingActions, action)
	return f.recordingCode, nil
}

func (f *fakeTransport) Manifest(context.Context, ChannelTier) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.manifestErr != nil {
		return "", f.manifestErr
	}
	f.manifestFetches++
	return f.manifest, nil
}

func authFailure(op string) error {
	return &Error{Kind: KindAuth, Op: op, Err: errors.New("module result code 50331651")}
}

func transientFailure(op string) error {
	return &Error{Kind: KindTransient, Op: op, Err: errors.New("connection refused")}
}

func TestSetup(t *testing.T) {
	ft := &fakeTransport{}
	dev := New(Config{Name: "Front Door", Model: "HD77", MAC: "aa:bb:cc:dd:ee:ff"}, ft)

	require.NoError(t, dev.Setup(context.Background()))
	require.True(t, dev.Available())

	info := dev.ModuleInfo()
	require.Equal(t, Manufacturer, info.Manufacturer)
	require.Equal(t, "HD77", info.Model)
	require.Equal(t, "Front Door", info.Name)
	require.NotEmpty(t, info.Serial)
	require.Equal(t, "aa:bb:cc:dd:ee:ff", info.MAC)

	panel, ok := dev.PanelInfo()
	require.True(t, ok)
	require.NotEmpty(t, panel.Serial)
	require.Equal(t, "Paradox Control Panel", panel.Name)
}

func TestSetupNoPanel(t *testing.T) {
	// camera-only module
	ft := &fakeTransport{noPanel: true}
	dev := New(Config{Model: "HD77"}, ft)
	require.NoError(t, dev.Setup(context.Background()))

	_, ok := dev.PanelInfo()
	require.False(t, ok)
}

func TestSetupAuthFailure(t *testing.T) {
	ft := &fakeTransport{loginErr: authFailure("login")}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	err := dev.Setup(context.Background())
	require.Error(t, err)
	require.Equal(t, KindAuth, KindOf(err))
	require.False(t, dev.Available())
}

func TestSetupTransientFailure(t *testing.T) {
	ft := &fakeTransport{loginErr: transientFailure("login")}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	require.NoError(t, dev.Setup(context.Background()))
	require.False(t, dev.Available())
}

func TestSetupUnclassifiedFailure(t *testing.T) {
	ft := &fakeTransport{loginErr: errors.New("something odd")}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	require.NoError(t, dev.Setup(context.Background()))
	require.False(t, dev.Available())
}

func TestSendAreaCommand(t *testing.T) {
	ft := &fakeTransport{}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	require.NoError(t, dev.SendAreaCommand(context.Background(), 1, CommandDisarm, false))
	require.Equal(t, 1, ft.loginCount())
	require.Equal(t, [][]AreaCommand{{{AreaID: 1, Command: CommandDisarm, ForceZones: false}}}, ft.areaCalls)

	// session still good, no second login
	require.NoError(t, dev.SendAreaCommand(context.Background(), 2, CommandArmAway, true))
	require.Equal(t, 1, ft.loginCount())
	require.Equal(t, AreaCommand{AreaID: 2, Command: CommandArmAway, ForceZones: true}, ft.areaCalls[1][0])
}

func TestSendAreaCommandLoginFailure(t *testing.T) {
	ft := &fakeTransport{loginErr: authFailure("login")}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	err := dev.SendAreaCommand(context.Background(), 1, CommandArmAway, false)
	require.Error(t, err)
	require.Equal(t, KindAuth, KindOf(err))
	require.False(t, dev.Available())
	require.Empty(t, ft.areaCalls)
}

func TestSendAreaCommandSubmitFailure(t *testing.T) {
	ft := &fakeTransport{authenticated: true, areaErr: authFailure("areacontrol")}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)
	require.NoError(t, dev.Setup(context.Background()))

	err := dev.SendAreaCommand(context.Background(), 1, CommandArmHome, false)
	require.Error(t, err)
	require.False(t, dev.Available())
}

func TestSetRecording(t *testing.T) {
	ft := &fakeTransport{recordingCode: RecordingOK}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	ok, err := dev.SetRecording(context.Background(), true)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = dev.SetRecording(context.Background(), false)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []RecordingAction{RecordingStart, RecordingStop}, ft.recordingActions)
}

func TestSetRecordingRefused(t *testing.T) {
	// transport call succeeds, module answers a non-OK code
	ft := &fakeTransport{recordingCode: 7}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	ok, err := dev.SetRecording(context.Background(), true)
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, dev.Available())
}

const sampleManifest = `#EXTM3U
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=128000,CODECS="avc1.4d401f,mp4a.40.2"
low.m3u8
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=256000,CODECS="avc1.4d401f,mp4a.40.2"
norm.m3u8
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=512000,CODECS="avc1.4d401f,mp4a.40.2"
high.m3u8
`

func TestStreamSource(t *testing.T) {
	ft := &fakeTransport{manifest: sampleManifest}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	uri, err := dev.StreamSource(context.Background(), TierNormal)
	require.NoError(t, err)
	require.Equal(t, "norm.m3u8", uri)

	// second resolution hits the cache, not the module
	uri, err = dev.StreamSource(context.Background(), TierNormal)
	require.NoError(t, err)
	require.Equal(t, "norm.m3u8", uri)
	require.Equal(t, 1, ft.manifestFetches)
	require.Equal(t, 1, ft.loginCount())
}

func TestStreamSourceNoMatch(t *testing.T) {
	ft := &fakeTransport{manifest: "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=128000\nlow.m3u8\n"}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	uri, err := dev.StreamSource(context.Background(), TierHigh)
	require.NoError(t, err)
	require.Empty(t, uri)
}

func TestStreamSourceStaleSession(t *testing.T) {
	ft := &fakeTransport{manifest: sampleManifest}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	uri, err := dev.StreamSource(context.Background(), TierNormal)
	require.NoError(t, err)
	require.Equal(t, "norm.m3u8", uri)

	// module expired the session, cache must not survive it
	ft.setAuthenticated(false)
	ft.mu.Lock()
	ft.manifest = "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=256000\nnorm-2.m3u8\n"
	ft.mu.Unlock()

	uri, err = dev.StreamSource(context.Background(), TierNormal)
	require.NoError(t, err)
	require.Equal(t, "norm-2.m3u8", uri)
	require.Equal(t, 2, ft.loginCount())
	require.Equal(t, 2, ft.manifestFetches)
}

func TestStreamSourceParseFailure(t *testing.T) {
	ft := &fakeTransport{manifest: "<html>nope</html>"}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	_, err := dev.StreamSource(context.Background(), TierNormal)
	require.Error(t, err)
	require.Equal(t, KindUnclassified, KindOf(err))
}

func TestStreamSourceFetchAuthFailure(t *testing.T) {
	ft := &fakeTransport{manifestErr: authFailure("vod")}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	uri, err := dev.StreamSource(context.Background(), TierNormal)
	require.Error(t, err)
	require.Empty(t, uri)
	require.False(t, dev.Available())
}

func TestUpdate(t *testing.T) {
	ft := &fakeTransport{}
	ft.statusFn = func() ([]Area, error) {
		return []Area{
			{ID: 1, Label: "House", ArmingLevel: LevelArmedAway},
			{ID: 2, Label: "Garage", ArmingLevel: LevelDisarmed, InAlarm: true},
		}, nil
	}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)
	require.NoError(t, dev.Setup(context.Background()))

	areas, err := dev.Update(context.Background())
	require.NoError(t, err)
	require.Len(t, areas, 2)
	require.Equal(t, "House", areas[0].Label)
	require.True(t, areas[1].InAlarm)

	// status polls bypass authentication on purpose
	require.Equal(t, 1, ft.loginCount())
}

func TestUpdateTransientFailure(t *testing.T) {
	ft := &fakeTransport{}
	ft.statusFn = func() ([]Area, error) { return nil, transientFailure("pingstatus") }
	dev := New(Config{Name: "test", Model: "HD77"}, ft)
	require.NoError(t, dev.Setup(context.Background()))

	_, err := dev.Update(context.Background())
	require.ErrorIs(t, err, ErrUpdateFailed)
	// transient failures never flip availability
	require.True(t, dev.Available())
}

func TestUpdateAuthFailure(t *testing.T) {
	ft := &fakeTransport{}
	ft.statusFn = func() ([]Area, error) { return nil, authFailure("pingstatus") }
	dev := New(Config{Name: "test", Model: "HD77"}, ft)
	require.NoError(t, dev.Setup(context.Background()))

	_, err := dev.Update(context.Background())
	require.ErrorIs(t, err, ErrUpdateFailed)
	require.False(t, dev.Available())
}

func TestEnsureAuthenticatedConcurrent(t *testing.T) {
	ft := &fakeTransport{}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, dev.EnsureAuthenticated(context.Background()))
		}()
	}
	wg.Wait()

	// the first login wins, everyone else observes the fresh session
	require.Equal(t, 1, ft.loginCount())
	require.True(t, dev.Available())
}

func TestEnsureAuthenticatedConcurrentFailure(t *testing.T) {
	ft := &fakeTransport{loginErr: authFailure("login")}
	dev := New(Config{Name: "test", Model: "HD77"}, ft)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.Error(t, dev.EnsureAuthenticated(context.Background()))
		}()
	}
	wg.Wait()

	require.False(t, dev.Available())
	// each caller performed at most its own attempt
	require.LessOrEqual(t, ft.loginCount(), 10)
	require.GreaterOrEqual(t, ft.loginCount(), 1)
}
