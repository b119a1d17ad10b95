package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestActionsCounterLabels(t *testing.T) {
	before := testutil.ToFloat64(Actions.WithLabelValues("adm", "denied"))
	Actions.WithLabelValues("adm", "denied").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Actions.WithLabelValues("adm", "denied")))
}

func TestRegisterGaugeTwice(t *testing.T) {
	RegisterGauge("test_gauge", "test", func() float64 { return 1 })
	RegisterGauge("test_gauge", "test", func() float64 { return 2 })
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "fail", Outcome(errors.New("x")))
}
