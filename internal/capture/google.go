package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const streamSampleRate = 16000

// stream wraps one Google StreamingRecognize RPC lifecycle: send PCM chunks,
// merge interim/final results, then close and collect the transcript.
type stream struct {
	client *speech.Client
	rpc    speechpb.Speech_StreamingRecognizeClient

	recvDone chan struct{}

	mu          sync.Mutex
	segments    []string // committed transcript segments
	lastInterim string
	recvErr     error
	closedSend  bool
}

// openStream connects to Google Cloud Speech, sends the recognition config,
// and starts the receive loop.
func openStream(ctx context.Context, languageCode string, interim bool) (*stream, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	rpc, err := client.StreamingRecognize(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open streaming recognizer: %w", err)
	}

	req := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            streamSampleRate,
					LanguageCode:               languageCode,
					AudioChannelCount:          1,
					EnableAutomaticPunctuation: true,
				},
				InterimResults: interim,
			},
		},
	}
	if err := rpc.Send(req); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("send initial streaming config: %w", err)
	}

	s := &stream{
		client:   client,
		rpc:      rpc,
		recvDone: make(chan struct{}),
	}
	go s.recvLoop()
	return s, nil
}

// recvLoop continuously receives recognition responses until close or error.
func (s *stream) recvLoop() {
	defer close(s.recvDone)

	for {
		resp, err := s.rpc.Recv()
		if err == nil {
			s.recordResponse(resp)
			continue
		}
		if isStreamShutdown(err) {
			return
		}

		s.mu.Lock()
		s.recvErr = err
		s.mu.Unlock()
		return
	}
}

// isStreamShutdown classifies recv errors that just mean the stream ended.
func isStreamShutdown(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	switch status.Code(err) {
	case codes.Canceled, codes.OutOfRange:
		return true
	}
	return false
}

// recordResponse merges final/interim results into stream state.
func (s *stream) recordResponse(resp *speechpb.StreamingRecognizeResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, result := range resp.GetResults() {
		alternatives := result.GetAlternatives()
		if len(alternatives) == 0 {
			continue
		}
		text := alternatives[0].GetTranscript()
		if result.GetIsFinal() {
			s.segments = mergeSegment(s.segments, text)
			s.lastInterim = ""
			continue
		}

		if s.lastInterim != "" && !extendsSpeech(s.lastInterim, text) {
			s.segments = mergeSegment(s.segments, s.lastInterim)
		}
		s.lastInterim = text
	}
}

// sendAudio sends one chunk of PCM audio over the active stream.
func (s *stream) sendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.mu.Lock()
	closed := s.closedSend
	recvErr := s.recvErr
	s.mu.Unlock()

	if closed {
		return errors.New("stream already closed for sending")
	}
	if recvErr != nil {
		return fmt.Errorf("stream receive loop failed: %w", recvErr)
	}

	return s.rpc.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: chunk},
	})
}

// closeAndCollect closes send-side audio and returns merged transcript segments.
func (s *stream) closeAndCollect(ctx context.Context) ([]string, time.Duration, error) {
	closedAt := time.Now()

	s.mu.Lock()
	if !s.closedSend {
		s.closedSend = true
		_ = s.rpc.CloseSend()
	}
	s.mu.Unlock()

	select {
	case <-s.recvDone:
	case <-ctx.Done():
		_ = s.client.Close()
		return nil, 0, ctx.Err()
	}
	latency := time.Since(closedAt)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { _ = s.client.Close() }()

	if s.recvErr != nil {
		return nil, latency, s.recvErr
	}
	return finalSegments(s.segments, s.lastInterim), latency, nil
}

// cancel aborts the stream and releases the underlying client.
func (s *stream) cancel() error {
	s.mu.Lock()
	if !s.closedSend {
		s.closedSend = true
		_ = s.rpc.CloseSend()
	}
	s.mu.Unlock()
	return s.client.Close()
}
