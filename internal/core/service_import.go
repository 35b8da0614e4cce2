package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/JonMunkholm/planner/internal/csvimport"
	"github.com/JonMunkholm/planner/internal/logging"
	"github.com/JonMunkholm/planner/internal/notify"
	"github.com/JonMunkholm/planner/internal/taskstore"
)

// importOptions builds the parser options for req.
func (s *Service) importOptions(req ImportRequest) csvimport.Options {
	opts := csvimport.Options{
		HeaderSearchRows: s.opts.HeaderSearchRows,
		NewID:            s.newID,
	}
	if req.HeaderSearchRows > 0 {
		opts.HeaderSearchRows = req.HeaderSearchRows
	}
	if req.ExtendedAliases || s.opts.ExtendedAliases {
		opts.Aliases = csvimport.ExtendedAliases()
	}
	return opts
}

// ValidateImport checks a file without importing it. Every input it accepts
// imports; it also rejects empty and single-line files, which ImportCSV
// accepts as an import of no tasks.
func (s *Service) ValidateImport(ctx context.Context, req ImportRequest) (csvimport.ValidationReport, error) {
	if req.Body == nil {
		return csvimport.ValidationReport{}, ErrNoFile
	}
	text, err := csvimport.ReadText(req.Body, s.opts.MaxFileSize)
	if errors.Is(err, csvimport.ErrEmptyFile) {
		return csvimport.ValidationReport{Reason: "empty file"}, nil
	}
	if err != nil {
		return csvimport.ValidationReport{}, err
	}
	return csvimport.Validate(text, s.importOptions(req)), nil
}

// ImportCSV parses a file and appends its tasks to the project's plan.
//
// Imports are bounded by the limiter; ErrTooManyImports is returned when no
// slot frees up in time. Collaborators other than the importer receive a
// summary email once the plan is saved.
func (s *Service) ImportCSV(ctx context.Context, req ImportRequest) (res *ImportResult, err error) {
	if req.Body == nil {
		return nil, ErrNoFile
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("panic in import",
				"project_id", req.ProjectID,
				"file", req.FileName,
				"panic", r,
			)
			res, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.opts.ImportTimeout)
	defer cancel()

	start := time.Now()
	importID := s.newID()
	logger := logging.WithFields(ctx,
		"import_id", importID,
		"project_id", req.ProjectID,
		"file", req.FileName,
	)

	text, err := csvimport.ReadText(req.Body, s.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}
	parsed, err := csvimport.Import(text, s.importOptions(req))
	if err != nil {
		logger.Info("import rejected", "error", err)
		return nil, err
	}

	added, project, applied, err := s.saveImport(ctx, req, parsed)
	if err != nil {
		return nil, err
	}

	res = &ImportResult{
		ImportID:    importID,
		ProjectID:   req.ProjectID,
		FileName:    req.FileName,
		Imported:    len(added),
		Skipped:     parsed.Skipped,
		Delimiter:   parsed.Delimiter,
		HeaderLine:  parsed.HeaderLine,
		Meta:        parsed.Meta,
		MetaApplied: applied,
		Tasks:       added,
		DurationMs:  time.Since(start).Milliseconds(),
	}

	logger.Info("import complete",
		"imported", res.Imported,
		"skipped", len(res.Skipped),
		"delimiter", res.Delimiter,
		"duration_ms", res.DurationMs,
	)
	s.recordActivity(ctx, ActivityParams{
		ProjectID:    req.ProjectID,
		Action:       ActionImport,
		Subject:      req.FileName,
		Detail:       "skipped " + strconv.Itoa(len(res.Skipped)),
		RowsAffected: res.Imported,
		ImportID:     importID,
	})
	s.notifyImport(ctx, project, res)
	return res, nil
}

// saveImport appends the parsed tasks and, when requested, fills empty
// project fields from the metadata. Both happen under one hold of the project
// lock, and the project is read inside it, so a concurrent UpdateProject is
// never overwritten with stale fields.
func (s *Service) saveImport(ctx context.Context, req ImportRequest, parsed *csvimport.Result) ([]taskstore.Task, Project, []string, error) {
	unlock := s.lockProject(req.ProjectID)
	defer unlock()

	var added []taskstore.Task
	err := s.mutatePlanLocked(ctx, req.ProjectID, func(store *taskstore.Store) error {
		var err error
		added, err = store.AddTasks(parsed.Tasks, parsed.States)
		return err
	})
	if err != nil {
		return nil, Project{}, nil, err
	}

	project, err := s.repo.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, Project{}, nil, err
	}
	var applied []string
	if req.ApplyMeta && !parsed.Meta.IsEmpty() {
		applied, err = s.applyMeta(ctx, &project, parsed.Meta)
		if err != nil {
			return nil, Project{}, nil, err
		}
	}
	return added, project, applied, nil
}

// applyMeta copies metadata into empty project fields, saves the project and
// returns the names of the fields it set. The caller holds the project lock.
func (s *Service) applyMeta(ctx context.Context, p *Project, meta csvimport.ProjectMeta) ([]string, error) {
	var applied []string
	fill := func(name string, dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
			applied = append(applied, name)
		}
	}
	fill("description", &p.Description, meta.Description)
	fill("initialPrompt", &p.InitialPrompt, meta.InitialPrompt)
	fill("projectType", &p.ProjectType, meta.ProjectType)
	fill("experienceLevel", &p.ExperienceLevel, meta.ExperienceLevel)
	fill("projectLead", &p.Lead, meta.Lead)
	fill("status", &p.Status, meta.Status)
	fill("timeline", &p.Timeline, meta.Timeline)
	if p.Budget == nil && meta.Budget != nil {
		b := *meta.Budget
		p.Budget = &b
		applied = append(applied, "budget")
	}
	if p.StartDate == nil && meta.StartDate != nil {
		d := *meta.StartDate
		p.StartDate = &d
		applied = append(applied, "startDate")
	}
	if p.TargetEndDate == nil && meta.TargetEndDate != nil {
		d := *meta.TargetEndDate
		p.TargetEndDate = &d
		applied = append(applied, "targetEndDate")
	}
	if len(applied) == 0 {
		return nil, nil
	}

	p.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateProject(ctx, *p); err != nil {
		return nil, fmt.Errorf("apply metadata: %w", err)
	}
	return applied, nil
}

// notifyImport emails the import summary to every collaborator except the
// importer. Failures are logged only.
func (s *Service) notifyImport(ctx context.Context, p Project, res *ImportResult) {
	actor := ActorFromContext(ctx)
	collabs, err := s.repo.ListCollaborators(ctx, p.ID)
	if err != nil {
		logging.FromContext(ctx).Warn("import notification skipped", "project_id", p.ID, "error", err)
		return
	}

	var to []string
	for _, c := range collabs {
		if c.Email != actor {
			to = append(to, c.Email)
		}
	}
	if len(to) == 0 {
		return
	}

	skipped := make([]notify.SkippedLine, len(res.Skipped))
	for i, sk := range res.Skipped {
		skipped[i] = notify.SkippedLine{Line: sk.Line, Reason: sk.Reason}
	}
	msg, err := notify.ImportSummaryMessage(notify.ImportSummaryData{
		To:          to,
		ImportedBy:  actor,
		ProjectName: p.Name,
		FileName:    res.FileName,
		Imported:    res.Imported,
		Skipped:     skipped,
		ProjectURL:  s.projectURL(p.ID),
	})
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("import notification failed", "project_id", p.ID, "error", err)
	}
}
