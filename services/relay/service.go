package relay

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/upb/chat-relay/internal/observability"
	"github.com/upb/chat-relay/services"
	"github.com/upb/chat-relay/services/providers"
)

const (
	// MaxMessageLength is the buffered-mode bound on a message, in characters.
	MaxMessageLength = 4000

	// FallbackReply replaces an empty upstream reply.
	FallbackReply = "I couldn't generate a response."

	// ErrorMarker prefixes the trailing fragment written when a stream fails.
	ErrorMarker = "[ERROR]: "
)

// EmitFunc writes one fragment to the caller. A non-nil error means the
// caller is gone and streaming must stop.
type EmitFunc func(fragment string) error

// Service relays chat messages to the configured provider.
type Service struct {
	provider providers.Provider
	retrier  *Retrier
	logger   observability.Logger
	metrics  observability.Metrics
}

// NewService creates a relay service. A nil retrier uses the default
// schedule; nil logger and metrics discard their output.
func NewService(
	provider providers.Provider,
	retrier *Retrier,
	logger observability.Logger,
	metrics observability.Metrics,
) *Service {
	if retrier == nil {
		retrier = NewRetrier()
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}

	s := &Service{
		provider: provider,
		retrier:  retrier,
		logger:   logger,
		metrics:  metrics,
	}
	if retrier.OnRetry == nil {
		retrier.OnRetry = s.onRetry
	}
	return s
}

// Provider returns the provider requests are relayed to.
func (s *Service) Provider() providers.Provider {
	return s.provider
}

// Chat validates message and returns the provider's full reply.
// Rate limited calls are retried; terminal failures come back as
// services.ErrRateLimitExhausted, services.ErrQuotaExhausted or services.ErrUpstream.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", services.ErrMessageRequired
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return "", services.ErrMessageTooLong
	}

	s.logger.Debug(ctx, "relaying chat message",
		zap.String("provider", s.provider.Name()),
		zap.String("model", s.provider.Model()),
		zap.Int("length", len(message)))

	reply, err := s.retrier.RunWithRetry(ctx, func(ctx context.Context) (string, error) {
		return s.complete(ctx, message)
	})
	if err != nil {
		s.logger.Warn(ctx, "chat relay failed",
			zap.String("provider", s.provider.Name()),
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.Error(err))
		return "", err
	}

	if reply == "" {
		return FallbackReply, nil
	}
	return reply, nil
}

// Stream validates message and forwards each fragment of the provider's
// reply to emit as soon as it arrives.
//
// An empty message returns services.ErrMessageRequired before anything is
// emitted. An upstream failure is reported in-band as a final fragment
// starting with ErrorMarker and Stream returns nil. If emit fails or ctx is
// cancelled, the upstream call is released and that error is returned.
func (s *Service) Stream(ctx context.Context, message string, emit EmitFunc) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return services.ErrMessageRequired
	}

	name := s.provider.Name()
	s.metrics.StreamStarted(ctx)
	defer s.metrics.StreamFinished(ctx)

	start := time.Now()
	fragments := 0
	for fragment, err := range s.provider.Stream(ctx, message) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.logger.Info(ctx, "stream cancelled",
					zap.String("provider", name),
					zap.Int("fragments", fragments))
				return ctxErr
			}

			s.metrics.RecordUpstreamAttempt(ctx, name, Classify(providers.RawText(err)).String(), time.Since(start))
			s.logger.Warn(ctx, "stream failed",
				zap.String("provider", name),
				zap.Int("fragments", fragments),
				zap.Error(err))
			return emit(ErrorMarker + providers.RawText(err))
		}

		if err := emit(fragment); err != nil {
			s.logger.Info(ctx, "caller went away mid-stream",
				zap.String("provider", name),
				zap.Int("fragments", fragments),
				zap.Error(err))
			return err
		}
		fragments++
		s.metrics.RecordFragment(ctx, name)
	}

	s.metrics.RecordUpstreamAttempt(ctx, name, "ok", time.Since(start))
	s.logger.Debug(ctx, "stream completed",
		zap.String("provider", name),
		zap.Int("fragments", fragments),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *Service) complete(ctx context.Context, message string) (string, error) {
	start := time.Now()
	reply, err := s.provider.Complete(ctx, message)

	outcome := "ok"
	if err != nil {
		outcome = Classify(providers.RawText(err)).String()
	}
	s.metrics.RecordUpstreamAttempt(ctx, s.provider.Name(), outcome, time.Since(start))
	return reply, err
}

func (s *Service) onRetry(ctx context.Context, attempt int, wait time.Duration, err error) {
	s.metrics.RecordRetryWait(ctx, s.provider.Name(), wait)
	s.logger.Warn(ctx, "rate limited, backing off",
		zap.String("provider", s.provider.Name()),
		zap.Int("attempt", attempt),
		zap.Duration("wait", wait),
		zap.Error(err))
}
