package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"invosheet/internal"
	"invosheet/internal/profile"
	"invosheet/internal/storage"
)

// TextAcquirer hands the runner plain text for a document path.
type TextAcquirer interface {
	AcquireText(ctx context.Context, path string) (string, error)
	Supported(path string) bool
}

// Runner drives one pipeline pass: walk an input tree, run every supported
// document through acquire / detect / extract / normalize, and lay the
// surviving records out as sheets. A failing document never stops the run.
type Runner struct {
	profiles   *profile.Set
	acquirer   TextAcquirer
	extractor  *Extractor
	normalizer *Normalizer
	db         *storage.DB // optional run/document bookkeeping
}

func NewRunner(profiles *profile.Set, acquirer TextAcquirer, extractor *Extractor, normalizer *Normalizer, db *storage.DB) *Runner {
	return &Runner{
		profiles:   profiles,
		acquirer:   acquirer,
		extractor:  extractor,
		normalizer: normalizer,
		db:         db,
	}
}

type RunResult struct {
	Plan      internal.SheetPlan
	Groups    []internal.RecordGroup
	Failures  []internal.DocumentFailure
	Processed int
}

// Run walks inputDir: supported files directly inside it form a group named
// after the directory, and each subdirectory is a further group in name
// order. Document order inside a group is file-name order, which is also the
// row order of the resulting sheets.
func (r *Runner) Run(ctx context.Context, inputDir string) (RunResult, error) {
	start := time.Now()
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return RunResult{}, err
	}

	var loose []string
	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
			continue
		}
		if r.acquirer.Supported(entry.Name()) {
			loose = append(loose, filepath.Join(inputDir, entry.Name()))
		}
	}
	sort.Strings(subdirs)

	var result RunResult
	if len(loose) > 0 {
		group := r.processGroup(ctx, filepath.Base(inputDir), loose, &result)
		result.Groups = append(result.Groups, group)
	}
	for _, name := range subdirs {
		dir := filepath.Join(inputDir, name)
		files, err := r.supportedFiles(dir)
		if err != nil {
			return RunResult{}, err
		}
		group := r.processGroup(ctx, name, files, &result)
		result.Groups = append(result.Groups, group)
	}

	result.Plan = PlanSheets(result.Groups)
	r.recordRun(&result, time.Since(start))
	return result, ctx.Err()
}

func (r *Runner) supportedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && r.acquirer.Supported(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

func (r *Runner) processGroup(ctx context.Context, key string, paths []string, result *RunResult) internal.RecordGroup {
	group := internal.RecordGroup{Key: key}
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		rec, failure := r.ProcessDocument(ctx, key, path)
		if failure != nil {
			result.Failures = append(result.Failures, *failure)
			continue
		}
		group.Records = append(group.Records, rec)
		result.Processed++
	}
	return group
}

// ProcessDocuments re-runs already-registered documents, for example rows
// fetched from the store by status. Records group under each document's
// stored group key, groups appear in encounter order.
func (r *Runner) ProcessDocuments(ctx context.Context, docs []internal.DocumentRow) RunResult {
	var result RunResult
	index := map[string]int{}
	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		rec, failure := r.ProcessDocument(ctx, doc.GroupKey, doc.Path)
		if failure != nil {
			result.Failures = append(result.Failures, *failure)
			continue
		}
		i, ok := index[doc.GroupKey]
		if !ok {
			i = len(result.Groups)
			index[doc.GroupKey] = i
			result.Groups = append(result.Groups, internal.RecordGroup{Key: doc.GroupKey})
		}
		result.Groups[i].Records = append(result.Groups[i].Records, rec)
		result.Processed++
	}
	result.Plan = PlanSheets(result.Groups)
	return result
}

// ProcessDocument runs a single document through the pipeline. Exactly one
// of the return values is non-nil.
func (r *Runner) ProcessDocument(ctx context.Context, groupKey, path string) (*internal.InvoiceRecord, *internal.DocumentFailure) {
	text, err := r.acquirer.AcquireText(ctx, path)
	if err != nil {
		r.recordDocument(groupKey, path, "", "", "failed", string(internal.ReasonAcquisition))
		return nil, &internal.DocumentFailure{
			GroupKey: groupKey,
			Path:     path,
			Reason:   internal.ReasonAcquisition,
			Detail:   err.Error(),
		}
	}

	supplier := DetectSupplier(r.profiles, text)
	res := r.extractor.Extract(ctx, text, supplier)
	if !res.OK() {
		r.recordDocument(groupKey, path, contentHash(text), string(supplier), "failed", string(res.Failure))
		return nil, &internal.DocumentFailure{
			GroupKey: groupKey,
			Path:     path,
			Reason:   res.Failure,
			Detail:   "tier " + string(res.Tier),
		}
	}

	res.Record.SourceFile = filepath.Base(path)
	res = r.normalizer.Normalize(res)
	r.recordDocument(groupKey, path, contentHash(text), string(supplier), "processed", "")
	return res.Record, nil
}

func (r *Runner) recordDocument(groupKey, path, hash, supplier, status, reason string) {
	if r.db == nil {
		return
	}
	_, _ = r.db.UpsertDocument(groupKey, path, hash, supplier, status, reason,
		time.Now().UTC().Format(time.RFC3339))
}

func (r *Runner) recordRun(result *RunResult, elapsed time.Duration) {
	if r.db == nil {
		return
	}
	_ = r.db.InsertRun(uuid.NewString(),
		map[string]int{
			"processed": result.Processed,
			"failed":    len(result.Failures),
			"groups":    len(result.Groups),
			"sheets":    len(result.Plan.Sheets),
		},
		map[string]int64{"totalMs": elapsed.Milliseconds()},
	)
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
