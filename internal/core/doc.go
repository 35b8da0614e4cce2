// Package core provides the business logic of the project planner.
//
// It sits between the transports (HTTP handlers, the planctl CLI) and
// persistence, and is independent of both. A [Service] is built on a
// [Repository] and owns every write.
//
// # Plans
//
// Each project has a plan: an ordered list of tasks with their subtasks, plus a
// tracked state per task. Writes go through the Service, which loads the plan
// into a taskstore.Store, applies the change and saves the whole plan back.
// Writes to one project are serialized, so a plan never has two writers.
//
// # Imports
//
// [Service.ImportCSV] reads a CSV or TSV file with csvimport and appends its
// tasks to the plan:
//
//  1. An [ImportLimiter] slot is taken (or ErrTooManyImports after a wait)
//  2. The file is read with a size limit and sanitized to UTF-8
//  3. Rows become tasks; rows that cannot are reported as skipped
//  4. The plan is saved and, on request, metadata fills empty project fields
//  5. Collaborators other than the importer get a summary email
//
// [Service.ValidateImport] runs the same checks without writing.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - IMP001-IMP002: file structure (no Task column, too few lines)
//   - FILE001-FILE005: file errors (size, empty, missing)
//   - PRJ, TSK, COL: projects, tasks and collaborators
//   - REQ001-REQ003: cancelled, timed out or malformed requests
//
// # Activity Log
//
// Every change is recorded with a severity:
//
//   - Low: reorders and subtask toggles
//   - Medium: edits
//   - High: imports, task deletions, collaborator changes
//   - Critical: project deletion
//
// [Service.StartRetentionScheduler] purges entries past the retention period.
package core
