package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"hash"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// hashAlgo names the two mechanisms spec §4.6 recognises in the
// WWW-Authenticate "hash" parameter.
type hashAlgo struct {
	name   string
	newH   func() hash.Hash
	size   int
	wireID string // the value carried in the "hash" header parameter
}

var (
	hashSHA256 = hashAlgo{name: "SCRAM-SHA-256", newH: sha256.New, size: sha256.Size, wireID: "SHA-256"}
	hashSHA512 = hashAlgo{name: "SCRAM-SHA-512", newH: sha512.New, size: sha512.Size, wireID: "SHA-512"}
)

func algoForWireID(id string) (hashAlgo, error) {
	switch id {
	case hashSHA256.wireID:
		return hashSHA256, nil
	case hashSHA512.wireID:
		return hashSHA512, nil
	default:
		return hashAlgo{}, errors.Wrapf(AuthError, "unsupported hashing algorithm %q", id)
	}
}

// scramClient holds the per-handshake SCRAM state, mirroring the role the
// Python original delegated to the third-party "scramp" library.
type scramClient struct {
	algo     hashAlgo
	username string
	password string

	clientNonce string
	authMessage string // client-first-bare,server-first,client-final-without-proof
	saltedPass  []byte
}

func newScramClient(algo hashAlgo, username, password string) (*scramClient, error) {
	return &scramClient{algo: algo, username: username, password: password, clientNonce: randomNonce()}, nil
}

// randomNonce builds the client nonce from a fresh random UUID's bytes
// rather than its hyphenated string form, giving SCRAM the same entropy
// (122 random bits) in the compact base64url shape the wire format expects.
func randomNonce() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// scramEscape replaces the two characters SCRAM forbids literally in a
// "n=" username, per RFC 5802 §5.1.
func scramEscape(s string) string {
	s = strings.ReplaceAll(s, "=", "=3D")
	s = strings.ReplaceAll(s, ",", "=2C")
	return s
}

// clientFirstMessage builds "n,,n=user,r=nonce" (no channel binding).
func (c *scramClient) clientFirstMessage() (gs2Header, bare, full string) {
	gs2Header = "n,,"
	bare = "n=" + scramEscape(c.username) + ",r=" + c.clientNonce
	full = gs2Header + bare
	return
}

type serverFirst struct {
	nonce string
	salt  []byte
	iters int
}

// parseServerFirst decodes "r=<nonce>,s=<salt-b64>,i=<iterCount>" and
// verifies the returned nonce starts with the client nonce we sent.
func (c *scramClient) parseServerFirst(msg string) (serverFirst, error) {
	fields, err := splitScramFields(msg)
	if err != nil {
		return serverFirst{}, err
	}
	nonce, ok := fields["r"]
	if !ok {
		return serverFirst{}, errors.Wrap(AuthError, "SCRAM server-first missing nonce field")
	}
	if !strings.HasPrefix(nonce, c.clientNonce) {
		return serverFirst{}, errors.Wrap(AuthError, "SCRAM server-first nonce does not extend client nonce")
	}
	saltB64, ok := fields["s"]
	if !ok {
		return serverFirst{}, errors.Wrap(AuthError, "SCRAM server-first missing salt field")
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return serverFirst{}, errors.Wrap(AuthError, "SCRAM server-first has malformed salt")
	}
	itersStr, ok := fields["i"]
	if !ok {
		return serverFirst{}, errors.Wrap(AuthError, "SCRAM server-first missing iteration count")
	}
	iters, err := strconv.Atoi(itersStr)
	if err != nil || iters <= 0 {
		return serverFirst{}, errors.Wrap(AuthError, "SCRAM server-first has malformed iteration count")
	}
	return serverFirst{nonce: nonce, salt: salt, iters: iters}, nil
}

// clientFinalMessage salts the password, derives the client/stored keys,
// assembles the auth message, and signs it, per RFC 5802 §3.
func (c *scramClient) clientFinalMessage(clientFirstBare, serverFirstMsg string, sf serverFirst) string {
	c.saltedPass = pbkdf2.Key([]byte(c.password), sf.salt, sf.iters, c.algo.size, c.algo.newH)

	clientFinalWithoutProof := "c=" + base64.StdEncoding.EncodeToString([]byte("n,,")) + ",r=" + sf.nonce
	c.authMessage = clientFirstBare + "," + serverFirstMsg + "," + clientFinalWithoutProof

	clientKey := c.hmac(c.saltedPass, "Client Key")
	storedKey := c.h(clientKey)
	clientSignature := c.hmac(storedKey, c.authMessage)
	clientProof := xorBytes(clientKey, clientSignature)

	return clientFinalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)
}

// verifyServerFinal checks "v=<signature-b64>" against the expected server
// signature, or treats "e=<error>" as a hard failure.
func (c *scramClient) verifyServerFinal(msg string) error {
	fields, err := splitScramFields(msg)
	if err != nil {
		return err
	}
	if errMsg, ok := fields["e"]; ok {
		return errors.Wrapf(AuthError, "SCRAM server reported error: %s", errMsg)
	}
	vB64, ok := fields["v"]
	if !ok {
		return errors.Wrap(AuthError, "SCRAM server-final missing verifier field")
	}
	gotSig, err := base64.StdEncoding.DecodeString(vB64)
	if err != nil {
		return errors.Wrap(AuthError, "SCRAM server-final has malformed verifier")
	}
	serverKey := c.hmac(c.saltedPass, "Server Key")
	wantSig := c.hmac(serverKey, c.authMessage)
	if !hmac.Equal(gotSig, wantSig) {
		return errors.Wrap(AuthError, "SCRAM server-final verification failed")
	}
	return nil
}

func (c *scramClient) hmac(key []byte, data string) []byte {
	mac := hmac.New(c.algo.newH, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func (c *scramClient) h(data []byte) []byte {
	h := c.algo.newH()
	h.Write(data)
	return h.Sum(nil)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// splitScramFields parses a comma-separated "k=v" SCRAM message body.
func splitScramFields(msg string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(msg, ",") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return nil, errors.Wrapf(AuthError, "malformed SCRAM field %q", part)
		}
		fields[key] = value
	}
	return fields, nil
}
