package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/crypto/pbkdf2"
)

// fakeServer plays the server side of SCRAM-SHA-256 well enough to drive
// Authenticator through a full, successful handshake in-process, so the
// state machine can be tested without a live transport.
type fakeServer struct {
	username, password string
	salt                []byte
	iters               int
	clientNonce         string
	serverNonce         string
	saltedPass          []byte
	authMessage         string
}

func newFakeServer(username, password string) *fakeServer {
	salt := make([]byte, 16)
	_, _ = rand.Read(salt)
	return &fakeServer{username: username, password: password, salt: salt, iters: 4096}
}

func (s *fakeServer) handshakeToken() string { return "tok-1" }

// respondHello returns the WWW-Authenticate value for the hello step.
func respondHelloChallenge() string {
	return NewMsg("scram", map[string]string{
		"handshaketoken": "tok-1",
		"hash":           "SHA-256",
	}).Encode()
}

// respondClientFirst parses the client-first message, picks a server
// nonce extending the client one, and returns the server-first
// WWW-Authenticate value plus the raw server-first message (for later
// signature computation).
func (s *fakeServer) respondClientFirst(authHeader string) (wwwAuthenticate string) {
	msg, err := DecodeMsg(authHeader)
	if err != nil {
		panic(err)
	}
	full, err := unpaddedB64Decode(msg.Params["data"])
	if err != nil {
		panic(err)
	}
	// full = "n,,n=user,r=clientNonce"
	bareStart := strings.Index(full, "n=")
	bare := full[bareStart:]
	fields, _ := splitScramFields(bare)
	s.clientNonce = fields["r"]

	extra := make([]byte, 12)
	_, _ = rand.Read(extra)
	s.serverNonce = s.clientNonce + base64.RawURLEncoding.EncodeToString(extra)

	serverFirst := "r=" + s.serverNonce + ",s=" + base64.StdEncoding.EncodeToString(s.salt) + ",i=" + strconv.Itoa(s.iters)
	s.authMessage = bare + "," + serverFirst // client-final-without-proof appended once known

	return NewMsg("scram", map[string]string{
		"handshaketoken": "tok-2",
		"data":           unpaddedB64Encode(serverFirst),
	}).Encode()
}

// respondClientFinal parses the client-final message, verifies the client
// proof, and returns the Authentication-Info value with the server
// signature.
func (s *fakeServer) respondClientFinal(authHeader string) (authenticationInfo string, ok bool) {
	msg, err := DecodeMsg(authHeader)
	if err != nil {
		panic(err)
	}
	clientFinal, err := unpaddedB64Decode(msg.Params["data"])
	if err != nil {
		panic(err)
	}
	fields, _ := splitScramFields(clientFinal)
	proofB64 := fields["p"]
	withoutProof := strings.TrimSuffix(clientFinal, ",p="+proofB64)

	s.authMessage = s.authMessage + "," + withoutProof
	s.saltedPass = pbkdf2.Key([]byte(s.password), s.salt, s.iters, sha256.Size, sha256.New)

	clientKey := hmacSum(s.saltedPass, "Client Key")
	storedKey := shaSum(clientKey)
	expectedSig := hmacSum(storedKey, s.authMessage)
	gotProof, _ := base64.StdEncoding.DecodeString(proofB64)
	gotSig := xorBytes(clientKey, gotProof)
	if !hmac.Equal(gotSig, expectedSig) {
		return "", false
	}

	serverKey := hmacSum(s.saltedPass, "Server Key")
	serverSig := hmacSum(serverKey, s.authMessage)
	serverFinal := "v=" + base64.StdEncoding.EncodeToString(serverSig)

	info := map[string]string{
		"authtoken": "at-123",
		"data":      unpaddedB64Encode(serverFinal),
	}
	pairs := make([]string, 0, len(info))
	for k, v := range info {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ", "), true
}

func hmacSum(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func shaSum(data []byte) []byte {
	h := sha256.New()
	h.Write(data)
	return h.Sum(nil)
}

func TestAuthenticatorFullHandshake(t *testing.T) {
	server := newFakeServer("alice", "hunter2")
	a := New("alice", "hunter2")

	helloHeader, err := a.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !strings.HasPrefix(helloHeader, "hello ") {
		t.Fatalf("expected hello header, got %q", helloHeader)
	}

	clientFirstHeader, err := a.HandleChallenge(401, respondHelloChallenge())
	if err != nil {
		t.Fatalf("HandleChallenge: %v", err)
	}
	if !strings.HasPrefix(clientFirstHeader, "scram ") {
		t.Fatalf("expected scram header, got %q", clientFirstHeader)
	}
	// HandleChallenge passes through StateChallenged on its way to building
	// the client-first message (spec §4.6's CHALLENGED position), landing in
	// StateAwaitServerFirst once the message is ready to send.
	if a.State() != StateAwaitServerFirst {
		t.Fatalf("State() after HandleChallenge = %v, want StateAwaitServerFirst", a.State())
	}

	serverFirstHeader := server.respondClientFirst(clientFirstHeader)
	clientFinalHeader, err := a.HandleServerFirst(401, serverFirstHeader)
	if err != nil {
		t.Fatalf("HandleServerFirst: %v", err)
	}
	// Likewise HandleServerFirst passes through StateServerFirst before
	// landing in StateAwaitServerFinal.
	if a.State() != StateAwaitServerFinal {
		t.Fatalf("State() after HandleServerFirst = %v, want StateAwaitServerFinal", a.State())
	}

	authInfo, ok := server.respondClientFinal(clientFinalHeader)
	if !ok {
		t.Fatalf("server rejected client proof")
	}

	bearerHeader, err := a.HandleServerFinal(200, authInfo)
	if err != nil {
		t.Fatalf("HandleServerFinal: %v", err)
	}
	if bearerHeader != "bearer authtoken=at-123" {
		t.Fatalf("unexpected bearer header %q", bearerHeader)
	}

	token, ok := a.AuthToken()
	if !ok || token != "at-123" {
		t.Fatalf("AuthToken() = %q, %v; want at-123, true", token, ok)
	}
	if a.State() != StateAuthed {
		t.Fatalf("State() = %v, want StateAuthed", a.State())
	}
}

func TestAuthenticatorRejectsWrongStatus(t *testing.T) {
	a := New("alice", "hunter2")
	if _, err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := a.HandleChallenge(200, ""); err == nil {
		t.Fatal("expected error for non-401 status after hello")
	}
}

func TestAuthenticatorRejectsUnsupportedScheme(t *testing.T) {
	a := New("alice", "hunter2")
	if _, err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	wwwAuth := NewMsg("basic", map[string]string{"handshaketoken": "t", "hash": "SHA-256"}).Encode()
	if _, err := a.HandleChallenge(401, wwwAuth); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestAuthenticatorRejectsUnsupportedHash(t *testing.T) {
	a := New("alice", "hunter2")
	if _, err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	wwwAuth := NewMsg("scram", map[string]string{"handshaketoken": "t", "hash": "MD5"}).Encode()
	if _, err := a.HandleChallenge(401, wwwAuth); err == nil {
		t.Fatal("expected error for unsupported hash algorithm")
	}
}

func TestAuthenticatorRejectsBadServerSignature(t *testing.T) {
	a := New("alice", "hunter2")
	if _, err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clientFirstHeader, err := a.HandleChallenge(401, respondHelloChallenge())
	if err != nil {
		t.Fatalf("HandleChallenge: %v", err)
	}

	server := newFakeServer("alice", "hunter2")
	serverFirstHeader := server.respondClientFirst(clientFirstHeader)
	clientFinalHeader, err := a.HandleServerFirst(401, serverFirstHeader)
	if err != nil {
		t.Fatalf("HandleServerFirst: %v", err)
	}
	_ = clientFinalHeader

	forged := NewMsg("", map[string]string{
		"authtoken": "at-123",
		"data":      unpaddedB64Encode("v=" + base64.StdEncoding.EncodeToString([]byte("not-the-real-signature!"))),
	})
	// NewMsg lowercases but Encode always includes a scheme prefix; strip it
	// back off since Authentication-Info carries no scheme (spec §6).
	encoded := strings.TrimPrefix(forged.Encode(), " ")

	if _, err := a.HandleServerFinal(200, encoded); err == nil {
		t.Fatal("expected error for forged server signature")
	}
}

func TestUnpaddedBase64RoundTrip(t *testing.T) {
	cases := []string{"", "a", "ab", "abc", "abcd", "hello world", "n,,n=user,r=abcDEF123"}
	for _, c := range cases {
		encoded := unpaddedB64Encode(c)
		if strings.Contains(encoded, "=") {
			t.Fatalf("unpaddedB64Encode(%q) = %q contains padding", c, encoded)
		}
		decoded, err := unpaddedB64Decode(encoded)
		if err != nil {
			t.Fatalf("unpaddedB64Decode(%q): %v", encoded, err)
		}
		if decoded != c {
			t.Fatalf("round trip mismatch: got %q, want %q", decoded, c)
		}
	}
}
