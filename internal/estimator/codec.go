package estimator

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// FormatV1 identifies the artifact envelope layout.
const FormatV1 = "fitd/v1"

// ErrBadArtifact is returned by Unmarshal for bytes that are not a model artifact.
var ErrBadArtifact = errors.New("malformed model artifact")

type envelope struct {
	Format string          `json:"format"`
	Kind   Kind            `json:"kind"`
	State  json.RawMessage `json:"state"`
}

// Marshal serializes a fitted estimator into the artifact envelope.
func Marshal(est Estimator) ([]byte, error) {
	if est == nil || est.NumFeatures() == 0 {
		return nil, ErrNotFitted
	}
	state, err := json.Marshal(est)
	if err != nil {
		return nil, fmt.Errorf("encode %s state: %w", est.Kind(), err)
	}
	return json.Marshal(envelope{Format: FormatV1, Kind: est.Kind(), State: state})
}

// Unmarshal reverses Marshal.
func Unmarshal(b []byte) (Estimator, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}
	if env.Format != FormatV1 {
		return nil, fmt.Errorf("%w: unsupported format %q", ErrBadArtifact, env.Format)
	}
	var est Estimator
	switch env.Kind {
	case KindLinear:
		est = &linearRegression{}
	case KindLogReg:
		est = &logisticRegression{}
	case KindRandomForest:
		est = &randomForest{}
	default:
		return nil, fmt.Errorf("%w: %w: %q", ErrBadArtifact, ErrUnknownKind, string(env.Kind))
	}
	if err := json.Unmarshal(env.State, est); err != nil {
		return nil, fmt.Errorf("%w: %s state: %v", ErrBadArtifact, env.Kind, err)
	}
	if est.NumFeatures() == 0 {
		return nil, fmt.Errorf("%w: %s state is not fitted", ErrBadArtifact, env.Kind)
	}
	return est, nil
}
