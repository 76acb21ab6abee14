package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/costbook/internal/backup"
	"github.com/roach88/costbook/internal/kv"
	"github.com/roach88/costbook/internal/recipe"
	"github.com/roach88/costbook/internal/session"
	"github.com/roach88/costbook/internal/store"
	"github.com/roach88/costbook/internal/testutil"
)

// ExportTime is the timestamp stamped on every export taken by a scenario.
var ExportTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// ExportID is the export id stamped on every export taken by a scenario.
const ExportID = "scenario-export"

// Harness executes scenarios against a real session over in-memory stores.
// Debounced saves only fire when a scenario advances the manual scheduler.
type Harness struct {
	engine   *testutil.RecordingEngine
	local    *kv.Local
	profiles *store.Store
	sched    *testutil.ManualScheduler
	clock    *testutil.FixedClock
	ids      *testutil.FixedIDGenerator
	logger   *slog.Logger

	manager *session.Manager
	codec   *backup.Codec

	seq        int64
	lastExport []byte
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh in-memory key/value engine and an in-memory
// SQLite profile store, with a manual scheduler, a fixed clock and a fixed
// export id, so identical scenarios produce identical traces.
//
// Execution flow:
// 1. Seed the stores from the setup steps
// 2. Start a session manager (the flow usually begins with "boot")
// 3. Execute flow steps and check their expect clauses
// 4. Evaluate assertions against the trace and the stores
func Run(scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := testutil.NewRecordingEngine(kv.NewMemoryEngine())
	local := kv.NewLocal(engine, logger, recipe.DefaultMarginPct)
	defer local.Close()

	profiles, err := store.Open(":memory:", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory profile store: %w", err)
	}
	defer profiles.Close()

	h := &Harness{
		engine:   engine,
		local:    local,
		profiles: profiles,
		sched:    testutil.NewManualScheduler(),
		clock:    testutil.NewFixedClock(ExportTime),
		ids:      testutil.NewFixedIDGenerator(ExportID),
		logger:   logger,
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	// Only writes made by the flow count towards writes assertions.
	engine.Reset()

	h.startSession()
	h.executeFlow(ctx, scenario.Flow, result)

	snapshot, err := h.snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot state: %w", err)
	}
	result.Snapshot = snapshot

	actx := &AssertionContext{
		Ctx:      ctx,
		Local:    local,
		Profiles: profiles,
		Manager:  h.manager,
		Engine:   engine,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// startSession creates a manager and codec over the harness stores.
func (h *Harness) startSession() {
	h.manager = session.New(h.local, h.profiles,
		session.WithScheduler(h.sched),
		session.WithDebounce(session.DefaultDebounce),
		session.WithLogger(h.logger),
	)
	h.codec = backup.NewCodec(h.manager,
		backup.WithClock(h.clock),
		backup.WithIDGenerator(h.ids),
		backup.WithLogger(h.logger),
	)
}

func (h *Harness) nextSeq() int64 {
	h.seq++
	return h.seq
}

// executeSetup seeds the stores directly, bypassing the session.
// Each step is traced as an invocation and a completion.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		result.AddInvocationTrace(step.Action, normalize(step.Args), h.nextSeq())

		if err := h.seed(ctx, step); err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Action, err)
		}

		result.AddCompletionTrace(CaseOK, nil, h.nextSeq())
		h.logger.Info("setup step completed", "step", i, "action", step.Action)
	}
	return nil
}

func (h *Harness) seed(ctx context.Context, step ActionStep) error {
	args := step.Args
	switch step.Action {
	case SeedRows:
		return h.local.Rows.Save(argString(args, "recipe"), argRows(args, "rows"))
	case SeedLegacyRows:
		data, err := json.Marshal(argRows(args, "rows"))
		if err != nil {
			return err
		}
		return h.local.Engine.Put(kv.KeyLegacyRows, data)
	case SeedProfile:
		return h.profiles.PutItems(ctx, argString(args, "recipe"), argRows(args, "rows"))
	case SeedIngredients:
		return h.local.Ingredients.MergeFromRows(argRows(args, "rows"))
	case SeedCurrent:
		return h.local.Settings.SetCurrentRecipe(argString(args, "recipe"))
	case SeedMargin:
		return h.local.Settings.SetMarginPct(recipe.Coerce(args["pct"]))
	case SeedRaw:
		return h.local.Engine.Put(argString(args, "key"), []byte(argString(args, "value")))
	}
	return fmt.Errorf("unknown setup action %q", step.Action)
}

// executeFlow runs all flow steps and checks each completion against its
// expect clause. Failed operations are outcomes, not harness errors.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) {
	for i, step := range flow {
		result.AddInvocationTrace(step.Invoke, normalize(step.Args), h.nextSeq())

		out, err := operations[step.Invoke](ctx, h, step.Args)
		outputCase := caseFor(err)
		var traced any
		if err == nil {
			traced = normalize(out)
		}
		result.AddCompletionTrace(outputCase, traced, h.nextSeq())

		expectedCase := CaseOK
		if step.Expect != nil {
			expectedCase = step.Expect.Case
		}
		if outputCase != expectedCase {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected case %q, got %q (error: %v)",
				i, step.Invoke, expectedCase, outputCase, err))
		} else if step.Expect != nil && !matchArgs(traced, normalizeMap(step.Expect.Result)) {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected result %v, got %v",
				i, step.Invoke, normalize(step.Expect.Result), traced))
		}

		h.logger.Info("flow step completed",
			"step", i,
			"action", step.Invoke,
			"output_case", outputCase,
		)
	}
}

// snapshot decodes every stored value for the result.
func (h *Harness) snapshot() (map[string]any, error) {
	raw, err := h.local.Engine.Snapshot()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			out[k] = string(v)
			continue
		}
		out[k] = decoded
	}
	return out, nil
}

// operation runs one flow step against the harness session.
type operation func(ctx context.Context, h *Harness, args map[string]any) (map[string]any, error)

var operations = map[string]operation{
	"boot":       opBoot,
	"restart":    opRestart,
	"migrate":    opMigrate,
	"create":     opCreate,
	"switch":     opSwitch,
	"delete":     opDelete,
	"rename":     opRename,
	"edit":       opEdit,
	"add_row":    opAddRow,
	"delete_row": opDeleteRow,
	"save":       opSave,
	"advance":    opAdvance,
	"flush":      opFlush,
	"margin":     opMargin,
	"totals":     opTotals,
	"favorite":   opFavorite,
	"folder":     opFolder,
	"list":       opList,
	"export":     opExport,
	"import":     opImport,
}

func opBoot(ctx context.Context, h *Harness, _ map[string]any) (map[string]any, error) {
	rows, err := h.manager.Boot(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"current": h.manager.Current(), "rows": rows}, nil
}

// opRestart closes the session, flushing pending edits, and boots a new one
// over the same stores.
func opRestart(ctx context.Context, h *Harness, args map[string]any) (map[string]any, error) {
	if err := h.manager.Close(); err != nil {
		return nil, err
	}
	h.startSession()
	return opBoot(ctx, h, args)
}

func opMigrate(ctx context.Context, h *Harness, _ map[string]any) (map[string]any, error) {
	migrated, err := h.manager.Migrate(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"migrated": migrated}, nil
}

func opCreate(ctx context.Context, h *Harness, args map[string]any) (map[string]any, error) {
	rows, err := h.manager.CreateRecipe(ctx, argString(args, "name"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"current": h.manager.Current(), "rows": rows}, nil
}

func opSwitch(ctx context.Context, h *Harness, args map[string]any) (map[string]any, error) {
	rows, err := h.manager.SwitchRecipe(ctx, argString(args, "name"), argBool(args, "persist", true))
	if err != nil {
		return nil, err
	}
	return map[string]any{"current": h.manager.Current(), "rows": rows}, nil
}

func opDelete(ctx context.Context, h *Harness, args map[string]any) (map[string]any, error) {
	if err := h.manager.DeleteRecipe(ctx, argString(args, "name")); err != nil {
		return nil, err
	}
	return map[string]any{"current": h.manager.Current()}, nil
}

func opRename(ctx context.Context, h *Harness, args map[string]any) (map[string]any, error) {
	if err := h.manager.RenameRecipe(ctx, argString(args, "from"), argString(args, "to")); err != nil {
		return nil, err
	}
	return map[string]any{"current": h.manager.Current()}, nil
}

func opEdit(_ context.Context, h *Harness, args map[string]any) (map[string]any, error) {
	field, err := session.ParseField(argString(args, "field"))
	if err != nil {
		return nil, err
	}
	sum, err := h.manager.RecordEdit(argInt(args, "row"), field, argString(args, "value"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"total": sum.Total, "finalPrice": sum.FinalPrice}, nil
}

func opAddRow(_ context.Context, h *Harness, _ map[string]any) (map[string]any, error) {
	rows, err := h.manager.AddRow()
	if err != nil {
		return nil, err
	}
	return map[string]any{"rows": rows}, nil
}

func opDeleteRow(_ context.Context, h *Harness, args map[string]any) (map[string]any, error) {
	rows, err := h.manager.DeleteRow(argInt(args, "row"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"rows": rows}, nil
}

func opSave(ctx context.Context, h *Harness, _ map[string]any) (map[string]any, error) {
	if err := h.manager.Save(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"current": h.manager.Current()}, nil
}

// opAdvance moves virtual time forward, firing due debounced saves.
func opAdvance(_ context.Context, h *Harness, args map[string]any) (map[string]any, error) {
	d, err := time.ParseDuration(argString(args, "by"))
	if err != nil {
		return nil, fmt.Errorf("advance: %w", err)
	}
	h.sched.Advance(d)
	return map[string]any{"pending": h.manager.PendingSave()}, nil
}

func opFlush(_ context.Context, h *Harness, _ map[string]any) (map[string]any, error) {
	flushed, err := h.manager.FlushPending()
	if err != nil {
		return nil, err
	}
	return map[string]any{"flushed": flushed}, nil
}

func opMargin(_ context.Context, h *Harness, args map[string]any) (map[string]any, error) {
	if err := h.manager.SetMargin(recipe.Coerce(args["pct"])); err != nil {
		return nil, err
	}
	sum := h.manager.Totals()
	return map[string]any{"marginPct": sum.MarginPct, "finalPrice": sum.FinalPrice}, nil
}

func opTotals(_ context.Context, h *Harness, _ map[string]any) (map[string]any, error) {
	sum := h.manager.Totals()
	return map[string]any{
		"total":      sum.Total,
		"marginPct":  sum.MarginPct,
		"finalPrice": sum.FinalPrice,
	}, nil
}

func opFavorite(ctx context.Context, h *Harness, args map[string]any) (map[string]any, error) {
	if err := h.manager.SetFavorite(ctx, argString(args, "name"), argBool(args, "favorite", true)); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

func opFolder(ctx context.Context, h *Harness, args map[string]any) (map[string]any, error) {
	if err := h.manager.SetFolder(ctx, argString(args, "name"), argString(args, "folder")); err != nil {
		return nil, err
	}
	return map[string]any{"folders": h.manager.Folders()}, nil
}

func opList(ctx context.Context, h *Harness, _ map[string]any) (map[string]any, error) {
	names, err := h.manager.ListAllRecipeNames(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"recipes": names}, nil
}

// opExport exports the session and keeps the encoded document for a later
// import step.
func opExport(ctx context.Context, h *Harness, _ map[string]any) (map[string]any, error) {
	var buf bytes.Buffer
	doc, err := h.codec.ExportTo(ctx, &buf)
	if err != nil {
		return nil, err
	}
	h.lastExport = buf.Bytes()
	return map[string]any{
		"currentRecipe": doc.CurrentRecipe,
		"recipes":       doc.Names(),
		"marginPct":     doc.Settings.MarginPct,
	}, nil
}

// opImport imports args.document, or the last export when no document is
// given.
func opImport(ctx context.Context, h *Harness, args map[string]any) (map[string]any, error) {
	mode := backup.ModeMerge
	if s := argString(args, "mode"); s != "" {
		mode = backup.Mode(s)
	}
	data := h.lastExport
	if doc := argString(args, "document"); doc != "" {
		data = []byte(doc)
	}
	if data == nil {
		return nil, errors.New("import: no document and no previous export")
	}
	res, err := h.codec.Import(ctx, data, mode)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"imported": res.Imported,
		"pruned":   res.Pruned,
		"current":  res.Current,
	}, nil
}

// caseFor maps an operation error to its output case.
func caseFor(err error) string {
	switch {
	case err == nil:
		return CaseOK
	case errors.Is(err, session.ErrEmptyName):
		return CaseEmptyName
	case errors.Is(err, session.ErrRecipeNotFound):
		return CaseNotFound
	case errors.Is(err, session.ErrRecipeExists):
		return CaseExists
	case errors.Is(err, session.ErrRowIndex):
		return CaseRowIndex
	case errors.Is(err, session.ErrUnknownField):
		return CaseUnknownField
	case backup.IsValidationError(err):
		return CaseInvalid
	default:
		return CaseError
	}
}

// argString returns args[key] as text. Non-string YAML scalars are
// formatted, so `value: 1290` and `value: "1290"` are equivalent.
func argString(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func argInt(args map[string]any, key string) int {
	return int(recipe.Coerce(args[key]))
}

func argBool(args map[string]any, key string, def bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return def
}

// argRows parses a YAML list of row mappings.
func argRows(args map[string]any, key string) []recipe.Row {
	list, _ := args[key].([]any)
	rows := make([]recipe.Row, 0, len(list))
	for _, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			rows = append(rows, recipe.BlankRow())
			continue
		}
		rows = append(rows, recipe.ParseRow(m))
	}
	return rows
}

// normalize converts a value to its JSON data model (maps, slices, float64,
// strings, bools) so YAML expectations and Go results compare equal.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Sprint(v)
	}
	return out
}

// normalizeMap is normalize for expectation maps.
func normalizeMap(m map[string]any) map[string]any {
	out, _ := normalize(m).(map[string]any)
	return out
}
