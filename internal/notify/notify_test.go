package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

var sentAt = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{name: "ok", msg: Message{To: []string{"a@example.com"}, Subject: "hi"}},
		{name: "no recipients", msg: Message{Subject: "hi"}, wantErr: true},
		{name: "bad address", msg: Message{To: []string{"nobody"}}, wantErr: true},
		{name: "header injection", msg: Message{To: []string{"a@example.com\r\nBcc: x@y.z"}}, wantErr: true},
		{name: "multiline subject", msg: Message{To: []string{"a@example.com"}, Subject: "a\nb"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInviteMessage(t *testing.T) {
	msg, err := InviteMessage(InviteData{
		To:          "sam@example.com",
		InvitedBy:   "dana@example.com",
		ProjectName: "Acme\n Portal",
		Role:        "editor",
		ProjectURL:  "http://localhost:8080/projects/p1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"sam@example.com"}, msg.To)
	assert.Equal(t, "You have been invited to Acme Portal", msg.Subject)
	assert.Contains(t, msg.Body, "dana@example.com invited you")
	assert.Contains(t, msg.Body, "as editor")
	assert.Contains(t, msg.Body, "http://localhost:8080/projects/p1")
}

func TestImportSummaryMessage(t *testing.T) {
	skipped := make([]SkippedLine, 25)
	for i := range skipped {
		skipped[i] = SkippedLine{Line: i + 3, Reason: "empty task name"}
	}

	msg, err := ImportSummaryMessage(ImportSummaryData{
		To:          []string{"a@example.com", "b@example.com"},
		ProjectName: "Acme",
		FileName:    "plan.csv",
		Imported:    12,
		Skipped:     skipped,
	})
	require.NoError(t, err)

	assert.Equal(t, "12 tasks imported into Acme", msg.Subject)
	assert.Contains(t, msg.Body, "Someone imported 12 tasks into \"Acme\" from plan.csv.")
	assert.Contains(t, msg.Body, "25 rows were skipped:")
	assert.Contains(t, msg.Body, "line 3: empty task name")
	assert.Contains(t, msg.Body, "...and 5 more")
	assert.Equal(t, maxSkippedListed, strings.Count(msg.Body, "  - line"))
}

func TestImportSummaryMessage_NothingSkipped(t *testing.T) {
	msg, err := ImportSummaryMessage(ImportSummaryData{To: []string{"a@example.com"}, ProjectName: "Acme", Imported: 1})
	require.NoError(t, err)

	assert.Contains(t, msg.Body, "imported 1 task into")
	assert.NotContains(t, msg.Body, "skipped")
}

func TestEncodeRaw(t *testing.T) {
	raw := EncodeRaw("planner@example.com", Message{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Plan f\u00fcr Q2",
		Body:    "line one\nline two",
	}, sentAt)

	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	text := string(decoded)

	assert.Contains(t, text, "From: planner@example.com\r\n")
	assert.Contains(t, text, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, text, "Subject: =?utf-8?q?Plan_f=C3=BCr_Q2?=\r\n")
	assert.Contains(t, text, "Date: Fri, 01 Mar 2024 09:30:00 +0000\r\n")
	assert.True(t, strings.HasSuffix(text, "\r\n\r\nline one\r\nline two"))
}

func TestGmailMailer_Send(t *testing.T) {
	var gotRaw, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body struct {
			Raw string `json:"raw"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotRaw = body.Raw
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"m1"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	m, err := NewGmailMailerWithClient(ctx, srv.Client(), "planner@example.com", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	m.now = func() time.Time { return sentAt }

	msg := Message{To: []string{"a@example.com"}, Subject: "hello", Body: "hi"}
	require.NoError(t, m.Send(ctx, msg))

	assert.Equal(t, "/gmail/v1/users/me/messages/send", gotPath)
	assert.Equal(t, EncodeRaw("planner@example.com", msg, sentAt), gotRaw)
}

func TestGmailMailer_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	m, err := NewGmailMailerWithClient(context.Background(), srv.Client(), "planner@example.com", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "hello"})
	assert.ErrorContains(t, err, "gmail send")
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	tok := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"}

	require.NoError(t, SaveToken(path, tok))
	got, err := TokenFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, "rt", got.RefreshToken)
}

func TestOAuthConfig_MissingFile(t *testing.T) {
	_, err := OAuthConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read client secret file")
}

func TestOAuthConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	creds := `{"installed":{"client_id":"cid","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	require.NoError(t, writeFile(path, creds))

	cfg, err := OAuthConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "cid", cfg.ClientID)

	u := AuthCodeURL(cfg, "st")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "state=st")
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "hello"}))
	assert.Contains(t, buf.String(), "subject=hello")

	assert.ErrorIs(t, m.Send(context.Background(), Message{}), ErrNoRecipients)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Send(context.Background(), Message{To: []string{"a@example.com"}}))
	assert.Len(t, r.Sent(), 1)

	r.Err = errors.New("smtp down")
	assert.EqualError(t, r.Send(context.Background(), Message{To: []string{"a@example.com"}}), "smtp down")
	assert.Len(t, r.Sent(), 1)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
