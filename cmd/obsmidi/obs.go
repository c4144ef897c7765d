package main

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// OBSEvent is an obs-websocket update pushed by OBS.
type OBSEvent struct {
	UpdateType string          `json:"update-type"`
	Raw        json.RawMessage `json:"-"`
}

// StreamingStatus is the GetStreamingStatus response.
type StreamingStatus struct {
	Streaming bool `json:"streaming"`
	Recording bool `json:"recording"`
}

// RequestError is an obs-websocket response with status "error".
type RequestError struct {
	Request string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("obs %s: %s", e.Request, e.Message)
}

var errOBSClosed = errors.New("obs connection closed")

// obsEnvelope covers the fields shared by every obs-websocket 4.x message.
type obsEnvelope struct {
	MessageID  string `json:"message-id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	UpdateType string `json:"update-type"`
}

type obsReply struct {
	env  obsEnvelope
	body []byte
}

// OBSClient speaks the obs-websocket 4.x protocol.
//
// Requests are matched to responses by message-id. A single read pump owns
// the connection's read side; it routes responses to waiting callers and
// update events to the registered callback.
type OBSClient struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
	url     string
	logger  *slog.Logger
	timeout time.Duration

	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[string]chan obsReply
	onEvent func(OBSEvent)

	done    chan struct{}
	readErr error
}

// NewOBSClient connects to obs-websocket at wsURL and authenticates when OBS
// requires it. There is no retry; a failed connection is returned as is.
func NewOBSClient(wsURL, password string, logger *slog.Logger, timeoutMS int) (*OBSClient, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}

	d := websocket.Dialer{
		HandshakeTimeout: 2 * time.Second,
	}
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect to obs at %s: %w", wsURL, err)
	}

	c := &OBSClient{
		conn:    conn,
		url:     wsURL,
		logger:  logger,
		timeout: time.Duration(timeoutMS) * time.Millisecond,
		pending: make(map[string]chan obsReply),
		done:    make(chan struct{}),
	}
	go c.readPump()

	if err := c.authenticate(password); err != nil {
		c.Close()
		return nil, err
	}

	logger.Info("connected to OBS", "url", wsURL)
	return c, nil
}

// Register sets the callback for OBS update events. The callback runs on the
// read pump goroutine; calling back into the client from it deadlocks.
func (c *OBSClient) Register(fn func(OBSEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

// Done is closed when the connection is lost or closed.
func (c *OBSClient) Done() <-chan struct{} {
	return c.done
}

// Err returns the read error that ended the connection, once Done is closed.
func (c *OBSClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

func (c *OBSClient) readPump() {
	var err error
	defer func() {
		c.mu.Lock()
		c.readErr = err
		c.mu.Unlock()
		close(c.done)
	}()

	for {
		var message []byte
		_, message, err = c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Error("obs websocket read failed", "error", err)
			}
			return
		}

		var env obsEnvelope
		if jerr := json.Unmarshal(message, &env); jerr != nil {
			c.logger.Warn("failed to parse obs message", "error", jerr)
			continue
		}

		if env.UpdateType != "" {
			c.mu.Lock()
			fn := c.onEvent
			c.mu.Unlock()
			c.logger.Debug("obs event", "type", env.UpdateType)
			if fn != nil {
				fn(OBSEvent{UpdateType: env.UpdateType, Raw: message})
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[env.MessageID]
		delete(c.pending, env.MessageID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("obs response without caller", "message_id", env.MessageID)
			continue
		}
		ch <- obsReply{env: env, body: message}
	}
}

// call sends request with the given extra fields and decodes the response
// into out (which may be nil).
func (c *OBSClient) call(request string, fields map[string]any, out any) error {
	id := strconv.FormatUint(c.nextID.Add(1), 10)

	payload := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["request-type"] = request
	payload["message-id"] = id

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", request, err)
	}

	ch := make(chan obsReply, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, b)
	c.writeMu.Unlock()
	if err != nil {
		forget()
		return fmt.Errorf("send %s: %w", request, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	var reply obsReply
	select {
	case reply = <-ch:
	case <-timer.C:
		forget()
		return fmt.Errorf("%s: no response within %s", request, c.timeout)
	case <-c.done:
		forget()
		return fmt.Errorf("%s: %w", request, errOBSClosed)
	}

	if reply.env.Status != "ok" {
		return &RequestError{Request: request, Message: reply.env.Error}
	}
	if out != nil {
		if err := json.Unmarshal(reply.body, out); err != nil {
			return fmt.Errorf("decode %s response: %w", request, err)
		}
	}
	c.logger.Debug("obs request", "request", request, "message_id", id)
	return nil
}

// authenticate performs the GetAuthRequired/Authenticate handshake.
func (c *OBSClient) authenticate(password string) error {
	var auth struct {
		AuthRequired bool   `json:"authRequired"`
		Challenge    string `json:"challenge"`
		Salt         string `json:"salt"`
	}
	if err := c.call("GetAuthRequired", nil, &auth); err != nil {
		return err
	}
	if !auth.AuthRequired {
		return nil
	}
	if password == "" {
		return errors.New("obs requires authentication but no password is configured")
	}
	if err := c.call("Authenticate", map[string]any{"auth": authResponse(password, auth.Salt, auth.Challenge)}, nil); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	return nil
}

// authResponse computes base64(sha256(base64(sha256(password+salt)) + challenge)).
func authResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	resp := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(resp[:])
}

// Close sends a close frame and closes the connection.
func (c *OBSClient) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// ============================================================================
// State queries
// ============================================================================

// Version returns the obs-websocket and OBS Studio versions.
func (c *OBSClient) Version() (plugin, studio string, err error) {
	var resp struct {
		Plugin string `json:"obs-websocket-version"`
		Studio string `json:"obs-studio-version"`
	}
	if err := c.call("GetVersion", nil, &resp); err != nil {
		return "", "", err
	}
	return resp.Plugin, resp.Studio, nil
}

func (c *OBSClient) StreamingStatus() (StreamingStatus, error) {
	var st StreamingStatus
	err := c.call("GetStreamingStatus", nil, &st)
	return st, err
}

// Sources lists the source names known to OBS.
func (c *OBSClient) Sources() ([]string, error) {
	var resp struct {
		Sources []struct {
			Name string `json:"name"`
		} `json:"sources"`
	}
	if err := c.call("GetSourcesList", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Sources))
	for _, s := range resp.Sources {
		names = append(names, s.Name)
	}
	return names, nil
}

// ============================================================================
// Remote actions
// ============================================================================

func (c *OBSClient) SetStreaming(on bool) error {
	if on {
		return c.call("StartStreaming", nil, nil)
	}
	return c.call("StopStreaming", nil, nil)
}

func (c *OBSClient) ToggleStreaming() error {
	st, err := c.StreamingStatus()
	if err != nil {
		return err
	}
	return c.SetStreaming(!st.Streaming)
}

func (c *OBSClient) SetRecording(on bool) error {
	if on {
		return c.call("StartRecording", nil, nil)
	}
	return c.call("StopRecording", nil, nil)
}

func (c *OBSClient) ToggleRecording() error {
	st, err := c.StreamingStatus()
	if err != nil {
		return err
	}
	return c.SetRecording(!st.Recording)
}

func (c *OBSClient) NextScene() error { return c.changeScene(1) }
func (c *OBSClient) PrevScene() error { return c.changeScene(-1) }

// changeScene moves the preview scene by amount, wrapping around the scene
// list. Scene switching only applies in studio mode; otherwise it is a no-op.
func (c *OBSClient) changeScene(amount int) error {
	var studio struct {
		StudioMode bool `json:"studio-mode"`
	}
	if err := c.call("GetStudioModeStatus", nil, &studio); err != nil {
		return err
	}
	if !studio.StudioMode {
		c.logger.Warn("studio mode must be on for scene switching")
		return nil
	}

	var list struct {
		Scenes []struct {
			Name string `json:"name"`
		} `json:"scenes"`
	}
	if err := c.call("GetSceneList", nil, &list); err != nil {
		return err
	}
	var preview struct {
		Name string `json:"name"`
	}
	if err := c.call("GetPreviewScene", nil, &preview); err != nil {
		return err
	}

	names := make([]string, len(list.Scenes))
	for i, s := range list.Scenes {
		names[i] = s.Name
	}
	next, err := stepScene(names, preview.Name, amount)
	if err != nil {
		return err
	}
	return c.call("SetPreviewScene", map[string]any{"scene-name": next}, nil)
}

// stepScene returns the scene amount positions away from current, wrapping.
func stepScene(scenes []string, current string, amount int) (string, error) {
	n := len(scenes)
	for i, s := range scenes {
		if s == current {
			return scenes[((i+amount)%n+n)%n], nil
		}
	}
	return "", fmt.Errorf("preview scene %q not in scene list", current)
}

// Transition moves the preview scene to program using the current transition.
func (c *OBSClient) Transition() error {
	var resp struct {
		Current string `json:"current-transition"`
	}
	if err := c.call("GetTransitionList", nil, &resp); err != nil {
		return err
	}
	return c.call("TransitionToProgram", map[string]any{
		"with-transition": map[string]any{"name": resp.Current},
	}, nil)
}

// SetVolume sets a source's volume as a multiplier in [0, 1].
func (c *OBSClient) SetVolume(source string, volume float64) error {
	return c.call("SetVolume", map[string]any{"source": source, "volume": volume}, nil)
}

// SetSyncOffset maps position in [0, 1] onto [-1s, +1s] of audio sync offset.
func (c *OBSClient) SetSyncOffset(source string, position float64) error {
	return c.call("SetSyncOffset", map[string]any{"source": source, "offset": syncOffsetNS(position)}, nil)
}

func syncOffsetNS(position float64) int64 {
	return int64((position - 0.5) * 2 * syncOffsetRangeNS)
}

// SetMonitor switches a source between "monitor and output" and no monitoring.
func (c *OBSClient) SetMonitor(source string, on bool) error {
	t := monitorTypeNone
	if on {
		t = monitorTypeAndOutput
	}
	return c.call("SetAudioMonitorType", map[string]any{"sourceName": source, "monitorType": t}, nil)
}

func (c *OBSClient) ToggleMonitor(source string) error {
	var resp struct {
		MonitorType string `json:"monitorType"`
	}
	if err := c.call("GetAudioMonitorType", map[string]any{"sourceName": source}, &resp); err != nil {
		return err
	}
	return c.SetMonitor(source, resp.MonitorType == monitorTypeNone)
}
