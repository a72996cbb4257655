package grpcserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/gallery/internal/auth"
	"github.com/snappy-loop/gallery/internal/playback"
	"github.com/snappy-loop/gallery/internal/services"
	"github.com/snappy-loop/gallery/internal/wav"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const testKey = "gk_grpc_test"

// fakeAudio encodes with the real encoder and fabricates references.
type fakeAudio struct {
	narrateErr error
	lastOwner  uuid.UUID
}

func (f *fakeAudio) EncodeBase64(payload, mimeType string) ([]byte, error) {
	format, err := wav.FormatFromMIME(mimeType)
	if err != nil {
		return nil, err
	}
	return wav.Encode(payload, format)
}

func (f *fakeAudio) Narrate(_ context.Context, ownerID uuid.UUID, text string) (*playback.Reference, error) {
	f.lastOwner = ownerID
	if f.narrateErr != nil {
		return nil, f.narrateErr
	}
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", services.ErrValidation)
	}
	return &playback.Reference{
		ID:        uuid.New(),
		SessionID: ownerID,
		URL:       "/media/x",
		MIMEType:  wav.MIMEType,
		Size:      48,
		Duration:  0.5,
		ExpiresAt: time.Now().Add(time.Minute),
	}, nil
}

func startServer(t *testing.T, audio Audio) *grpc.ClientConn {
	t.Helper()
	authSvc, err := auth.NewService(nil, []string{testKey})
	if err != nil {
		t.Fatal(err)
	}
	srv, _ := NewServer(authSvc, audio)
	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func authed(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+testKey)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEncodeContainer(t *testing.T) {
	client := NewAudioServiceClient(startServer(t, &fakeAudio{}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pcm := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4})
	out, err := client.EncodeContainer(authed(ctx), mustStruct(t, map[string]interface{}{
		"pcm_base64": pcm,
		"mime_type":  "audio/L16;codec=pcm;rate=24000",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if got := len(out.GetValue()); got != wav.HeaderSize+4 {
		t.Errorf("container length = %d, want %d", got, wav.HeaderSize+4)
	}

	tests := []struct {
		name string
		req  map[string]interface{}
	}{
		{"malformed base64", map[string]interface{}{"pcm_base64": "%%%"}},
		{"odd sample bytes", map[string]interface{}{"pcm_base64": base64.StdEncoding.EncodeToString([]byte{1, 2, 3})}},
		{"non pcm mime", map[string]interface{}{"pcm_base64": pcm, "mime_type": "audio/mpeg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.EncodeContainer(authed(ctx), mustStruct(t, tt.req))
			if status.Code(err) != codes.InvalidArgument {
				t.Errorf("code = %v, want InvalidArgument (%v)", status.Code(err), err)
			}
		})
	}
}

func TestNarrate(t *testing.T) {
	audio := &fakeAudio{}
	client := NewAudioServiceClient(startServer(t, audio))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := client.Narrate(authed(ctx), mustStruct(t, map[string]interface{}{"text": "the pier at dusk"}))
	if err != nil {
		t.Fatal(err)
	}
	f := out.GetFields()
	if f["url"].GetStringValue() != "/media/x" || f["size"].GetNumberValue() != 48 || f["mime_type"].GetStringValue() != wav.MIMEType {
		t.Errorf("response = %v", out)
	}
	if audio.lastOwner == uuid.Nil {
		t.Error("reference owner should be the calling api key")
	}

	if _, err := client.Narrate(authed(ctx), mustStruct(t, map[string]interface{}{})); status.Code(err) != codes.InvalidArgument {
		t.Errorf("empty text: code = %v", status.Code(err))
	}

	audio.narrateErr = fmt.Errorf("provider: %w", context.DeadlineExceeded)
	if _, err := client.Narrate(authed(ctx), mustStruct(t, map[string]interface{}{"text": "x"})); status.Code(err) != codes.DeadlineExceeded {
		t.Errorf("timeout: code = %v", status.Code(err))
	}
}

func TestAuthInterceptor(t *testing.T) {
	conn := startServer(t, &fakeAudio{})
	client := NewAudioServiceClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.EncodeContainer(ctx, mustStruct(t, map[string]interface{}{}))
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("no key: code = %v", status.Code(err))
	}
	bad := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer wrong")
	if _, err := client.EncodeContainer(bad, mustStruct(t, map[string]interface{}{})); status.Code(err) != codes.Unauthenticated {
		t.Errorf("wrong key: code = %v", status.Code(err))
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: AudioServiceName})
	if err != nil {
		t.Fatalf("health check without key: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health = %v", resp.GetStatus())
	}
}
