package auth

import "github.com/pkg/errors"

// State identifies one position in the handshake state machine of spec
// §4.6. Every state except Authed is awaiting either a send or a recv.
type State int

const (
	StateInit State = iota
	StateAwaitChallenge
	StateChallenged
	StateAwaitServerFirst
	StateServerFirst
	StateAwaitServerFinal
	StateVerify
	StateAuthed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateAwaitChallenge:
		return "AWAIT_CHALLENGE"
	case StateChallenged:
		return "CHALLENGED"
	case StateAwaitServerFirst:
		return "AWAIT_SERVER_FIRST"
	case StateServerFirst:
		return "SERVER_FIRST"
	case StateAwaitServerFinal:
		return "AWAIT_SERVER_FINAL"
	case StateVerify:
		return "VERIFY"
	case StateAuthed:
		return "AUTHED"
	default:
		return "UNKNOWN"
	}
}

// Authenticator drives the SCRAM handshake of spec §4.6 as a pure state
// machine: callers perform the HTTP round-trips and feed back each
// response's status and header, receiving the Authorization header value
// to send next. It holds no network dependency, so it is exercised the
// same way whether driven live or from canned fixtures.
type Authenticator struct {
	username, password string
	state              State

	scram           *scramClient
	clientFirstBare string
	handshakeToken  string
	authToken       string
}

// New creates an Authenticator in StateInit for username/password.
func New(username, password string) *Authenticator {
	return &Authenticator{username: username, password: password, state: StateInit}
}

// State reports the authenticator's current position.
func (a *Authenticator) State() State { return a.state }

// AuthToken returns the bearer token once StateAuthed has been reached.
func (a *Authenticator) AuthToken() (string, bool) {
	if a.state != StateAuthed {
		return "", false
	}
	return a.authToken, true
}

func (a *Authenticator) wrongState(want State) error {
	return errors.Wrapf(AuthError, "authenticator in state %s, expected %s", a.state, want)
}

// Start returns the Authorization header for the initial hello request and
// transitions to StateAwaitChallenge.
func (a *Authenticator) Start() (string, error) {
	if a.state != StateInit {
		return "", a.wrongState(StateInit)
	}
	msg := NewMsg("hello", map[string]string{"username": unpaddedB64Encode(a.username)})
	a.state = StateAwaitChallenge
	return msg.Encode(), nil
}

// HandleChallenge consumes the hello response (expects 401 +
// WWW-Authenticate: scram, handshakeToken, hash) and returns the
// Authorization header for the scram client-first request.
func (a *Authenticator) HandleChallenge(status int, wwwAuthenticate string) (string, error) {
	if a.state != StateAwaitChallenge {
		return "", a.wrongState(StateAwaitChallenge)
	}
	if status != 401 {
		return "", errors.Wrapf(AuthError, "expected status 401 after hello, got %d", status)
	}
	if wwwAuthenticate == "" {
		return "", errors.Wrap(AuthError, "missing WWW-Authenticate header after hello")
	}
	msg, err := DecodeMsg(wwwAuthenticate)
	if err != nil {
		return "", err
	}
	if msg.Scheme != "scram" {
		return "", errors.Wrapf(AuthError, "unsupported authentication scheme %q", msg.Scheme)
	}
	handshakeToken, ok := msg.Params["handshaketoken"]
	if !ok {
		return "", errors.Wrap(AuthError, "challenge missing handshakeToken parameter")
	}
	wireHash, ok := msg.Params["hash"]
	if !ok {
		return "", errors.Wrap(AuthError, "challenge missing hash parameter")
	}
	algo, err := algoForWireID(wireHash)
	if err != nil {
		return "", err
	}
	scram, err := newScramClient(algo, a.username, a.password)
	if err != nil {
		return "", err
	}
	a.scram = scram
	a.handshakeToken = handshakeToken
	a.state = StateChallenged

	_, bare, full := scram.clientFirstMessage()
	a.clientFirstBare = bare

	out := NewMsg("scram", map[string]string{
		"handshaketoken": a.handshakeToken,
		"data":           unpaddedB64Encode(full),
	})
	a.state = StateAwaitServerFirst
	return out.Encode(), nil
}

// HandleServerFirst consumes the scram client-first response (expects 401 +
// WWW-Authenticate carrying a refreshed handshakeToken and base64url
// server-first data) and returns the Authorization header for the scram
// client-final request.
func (a *Authenticator) HandleServerFirst(status int, wwwAuthenticate string) (string, error) {
	if a.state != StateAwaitServerFirst {
		return "", a.wrongState(StateAwaitServerFirst)
	}
	if status != 401 {
		return "", errors.Wrapf(AuthError, "expected status 401 after SCRAM client-first, got %d", status)
	}
	if wwwAuthenticate == "" {
		return "", errors.Wrap(AuthError, "missing WWW-Authenticate header after SCRAM client-first")
	}
	msg, err := DecodeMsg(wwwAuthenticate)
	if err != nil {
		return "", err
	}
	handshakeToken, ok := msg.Params["handshaketoken"]
	if !ok {
		return "", errors.Wrap(AuthError, "SCRAM server-first response missing handshakeToken parameter")
	}
	dataB64, ok := msg.Params["data"]
	if !ok {
		return "", errors.Wrap(AuthError, "SCRAM server-first response missing data parameter")
	}
	serverFirstMsg, err := unpaddedB64Decode(dataB64)
	if err != nil {
		return "", err
	}
	sf, err := a.scram.parseServerFirst(serverFirstMsg)
	if err != nil {
		return "", err
	}
	a.handshakeToken = handshakeToken
	a.state = StateServerFirst

	clientFinal := a.scram.clientFinalMessage(a.clientFirstBare, serverFirstMsg, sf)

	out := NewMsg("scram", map[string]string{
		"handshaketoken": a.handshakeToken,
		"data":           unpaddedB64Encode(clientFinal),
	})
	a.state = StateAwaitServerFinal
	return out.Encode(), nil
}

// HandleServerFinal consumes the scram client-final response (expects 200 +
// Authentication-Info carrying authToken and base64url server-final data),
// verifies the SCRAM server signature, and on success transitions to
// StateAuthed and returns the bearer Authorization header value to use for
// all subsequent requests.
func (a *Authenticator) HandleServerFinal(status int, authenticationInfo string) (string, error) {
	if a.state != StateAwaitServerFinal {
		return "", a.wrongState(StateAwaitServerFinal)
	}
	if status != 200 {
		return "", errors.Wrapf(AuthError, "expected status 200 after SCRAM client-final, got %d", status)
	}
	if authenticationInfo == "" {
		return "", errors.Wrap(AuthError, "missing Authentication-Info header after SCRAM client-final")
	}
	params, err := DecodeParams(authenticationInfo)
	if err != nil {
		return "", err
	}
	authToken, ok := params["authtoken"]
	if !ok {
		return "", errors.Wrap(AuthError, "Authentication-Info missing authToken parameter")
	}
	dataB64, ok := params["data"]
	if !ok {
		return "", errors.Wrap(AuthError, "Authentication-Info missing data parameter")
	}
	serverFinalMsg, err := unpaddedB64Decode(dataB64)
	if err != nil {
		return "", err
	}

	a.state = StateVerify
	if err := a.scram.verifyServerFinal(serverFinalMsg); err != nil {
		return "", err
	}

	a.authToken = authToken
	a.state = StateAuthed

	out := NewMsg("bearer", map[string]string{"authtoken": a.authToken})
	return out.Encode(), nil
}
