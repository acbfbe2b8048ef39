package speech

import (
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
)

// stableInterim is the stability at which an abandoned interim is kept.
const stableInterim = 0.8

func (s *Stream) recvLoop() {
	defer close(s.recvDone)

	for {
		resp, err := s.stream.Recv()
		if err == nil {
			if inband := resp.GetError(); inband != nil && codes.Code(inband.GetCode()) != codes.OK {
				err = status.ErrorProto(inband)
			} else {
				s.recordResponse(resp)
				continue
			}
		}

		s.mu.Lock()
		if !s.canceled {
			s.recvErr = classify(err)
		}
		s.mu.Unlock()
		return
	}
}

// classify maps stream termination to nil (normal end), ErrNoSpeech, or the
// original error. Cloud Speech ends long streams with OUT_OF_RANGE.
func classify(err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.OutOfRange {
		return err
	}
	message := strings.ToLower(st.Message())
	if strings.Contains(message, "without audio") || strings.Contains(message, "audio timeout") {
		return ErrNoSpeech
	}
	return nil
}

// recordResponse commits finals and replaces the interim hypothesis with the
// concatenation of this response's non-final results.
func (s *Stream) recordResponse(resp *speechpb.StreamingRecognizeResponse) {
	if sink := s.debugSink; sink != nil {
		if b, err := protojson.Marshal(resp); err == nil {
			_, _ = sink.Write(append(b, '\n'))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	var interim []string
	var stability float32
	for _, result := range resp.GetResults() {
		alternatives := result.GetAlternatives()
		if len(alternatives) == 0 {
			continue
		}
		text := cleanSegment(alternatives[0].GetTranscript())
		if text == "" {
			continue
		}
		if result.GetIsFinal() {
			s.segments = appendSegment(s.segments, text)
			s.interim = ""
			s.stability = 0
			changed = true
			continue
		}
		interim = append(interim, text)
		if result.GetStability() > stability {
			stability = result.GetStability()
		}
	}

	if len(interim) > 0 {
		next := strings.Join(interim, " ")
		if s.interim != "" && s.stability >= stableInterim && !isInterimContinuation(s.interim, next) {
			s.segments = appendSegment(s.segments, s.interim)
		}
		s.interim = next
		s.stability = stability
		changed = true
	}

	if changed {
		select {
		case s.updates <- struct{}{}:
		default:
		}
	}
}
