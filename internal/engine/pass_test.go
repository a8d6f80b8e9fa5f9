package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/mattjoyce/mortar/internal/engine"
	"github.com/mattjoyce/mortar/internal/engine/mocks"
)

func buildRunnerFixture(t *testing.T, rec engine.Recorder) (*engine.PebbleRegistry, *engine.Runner) {
	t.Helper()
	pebbles := engine.NewPebbleRegistry(nil, nil)
	cements := engine.NewCementRegistry(pebbles, nil, nil)
	constructs := engine.NewConstructRegistry(cements, nil, nil)

	pebbles.Register(context.Background(), engine.Pebble{
		Name: "produce",
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"y": 10}, nil
		},
	})
	pebbles.Register(context.Background(), engine.Pebble{
		Name: "explode",
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("boom")
		},
	})

	if err := cements.Define(context.Background(), engine.Cement{
		Name:  "ok",
		Steps: []engine.CementStep{{Pebble: "produce", Order: 1}},
	}); err != nil {
		t.Fatalf("Define ok: %v", err)
	}
	if err := cements.Define(context.Background(), engine.Cement{
		Name:  "bad",
		Steps: []engine.CementStep{{Pebble: "explode", Order: 1}},
	}); err != nil {
		t.Fatalf("Define bad: %v", err)
	}
	if err := constructs.Define(context.Background(), engine.Construct{
		Name:  "good_construct",
		Steps: []engine.ConstructStep{{Cement: "ok", Order: 1}},
	}); err != nil {
		t.Fatalf("Define good_construct: %v", err)
	}
	if err := constructs.Define(context.Background(), engine.Construct{
		Name:  "bad_construct",
		Steps: []engine.ConstructStep{{Cement: "bad", Order: 1}},
	}); err != nil {
		t.Fatalf("Define bad_construct: %v", err)
	}

	return pebbles, engine.NewRunner(constructs, rec, nil)
}

func TestRunOnceRecordsPassAndStepLogs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().
		RecordPass(gomock.Any(), "good_construct", engine.PassFirst, "").
		Return("pass-1", nil)
	rec.EXPECT().
		AppendExecutionLog(gomock.Any(), gomock.AssignableToTypeOf(engine.LogEntry{})).
		DoAndReturn(func(ctx context.Context, entry engine.LogEntry) (string, error) {
			assert.Equal(t, "produce", entry.Pebble)
			assert.Equal(t, "good_construct", entry.Construct)
			assert.Equal(t, "pass-1", entry.PassID)
			assert.Equal(t, engine.StatusRunning, entry.Status)
			return "log-1", nil
		})
	rec.EXPECT().
		UpdateExecutionLog(gomock.Any(), "log-1", engine.StatusCompleted, gomock.Any(), "").
		Return(nil)

	_, runner := buildRunnerFixture(t, rec)
	ec, err := runner.RunOnce(context.Background(), "good_construct", engine.Context{})
	assert.NoError(t, err)
	assert.Equal(t, 10, ec["y"])
}

func TestRunOnceFailureMarksStepFailedAndPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().
		RecordPass(gomock.Any(), "bad_construct", engine.PassFirst, "").
		Return("pass-2", nil)
	rec.EXPECT().
		AppendExecutionLog(gomock.Any(), gomock.Any()).
		Return("log-2", nil)
	rec.EXPECT().
		UpdateExecutionLog(gomock.Any(), "log-2", engine.StatusFailed, gomock.Nil(), gomock.Not("")).
		Return(nil)

	_, runner := buildRunnerFixture(t, rec)
	_, err := runner.RunOnce(context.Background(), "bad_construct", engine.Context{})

	var perr *engine.PebbleError
	assert.ErrorAs(t, err, &perr)
}

func TestRunRecurringRequiresSchedule(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No recorder calls may happen when validation fails up front.
	rec := mocks.NewMockRecorder(ctrl)

	_, runner := buildRunnerFixture(t, rec)
	_, err := runner.RunRecurring(context.Background(), "good_construct", "", engine.Context{})

	var verr *engine.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRunRecurringRecordsSchedule(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().
		RecordPass(gomock.Any(), "good_construct", engine.PassScheduled, "0 6 * * *").
		Return("pass-3", nil)
	rec.EXPECT().AppendExecutionLog(gomock.Any(), gomock.Any()).Return("log-3", nil)
	rec.EXPECT().UpdateExecutionLog(gomock.Any(), "log-3", engine.StatusCompleted, gomock.Any(), "").Return(nil)

	_, runner := buildRunnerFixture(t, rec)
	ec, err := runner.RunRecurring(context.Background(), "good_construct", "0 6 * * *", engine.Context{})
	assert.NoError(t, err)
	assert.Equal(t, 10, ec["y"])
}

func TestRunOnceUnknownConstructRecordsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := mocks.NewMockRecorder(ctrl)

	_, runner := buildRunnerFixture(t, rec)
	_, err := runner.RunOnce(context.Background(), "ghost", nil)

	var nf *engine.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRunOnceSurvivesRecorderFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// History persistence is best-effort: a failing store must not fail
	// the pass.
	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().
		RecordPass(gomock.Any(), "good_construct", engine.PassFirst, "").
		Return("", errors.New("store down"))
	rec.EXPECT().
		AppendExecutionLog(gomock.Any(), gomock.Any()).
		Return("", errors.New("store down"))

	_, runner := buildRunnerFixture(t, rec)
	ec, err := runner.RunOnce(context.Background(), "good_construct", engine.Context{})
	assert.NoError(t, err)
	assert.Equal(t, 10, ec["y"])
}
