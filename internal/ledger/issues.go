package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/thiagokokada/doublegit-go/internal/platform"
)

type issueModel struct {
	bun.BaseModel `bun:"table:issues"`

	ID          string  `bun:"id,pk,type:text"`
	Title       string  `bun:"title,type:text,notnull"`
	Description *string `bun:"description,type:text"`
	MergeBase   *string `bun:"merge_base,type:text"`
	MergeHead   *string `bun:"merge_head,type:text"`
	RecordedAt  string  `bun:"recorded_at,type:text,notnull"`
}

type commentModel struct {
	bun.BaseModel `bun:"table:comments"`

	ID         int64   `bun:"id,pk,autoincrement"`
	IssueID    string  `bun:"issue_id,type:text,notnull"`
	CommentID  *string `bun:"comment_id,type:text"`
	ParentID   *string `bun:"parent_id,type:text"`
	Text       *string `bun:"text,type:text"`
	RecordedAt string  `bun:"recorded_at,type:text,notnull"`
}

// Recorder stores imported issues inside the run transaction.
type Recorder struct {
	tx    *Tx
	stamp string
}

var _ platform.Recorder = (*Recorder)(nil)

func (t *Tx) Recorder(at time.Time) *Recorder {
	return &Recorder{tx: t, stamp: formatTime(at)}
}

// RecordIssue inserts or refreshes an issue.
func (r *Recorder) RecordIssue(ctx context.Context, id string, title string, description *string, mr *platform.MergeRequest) error {
	model := &issueModel{ID: id, Title: title, Description: description, RecordedAt: r.stamp}
	if mr != nil {
		model.MergeBase = &mr.Base
		model.MergeHead = &mr.Head
	}
	_, err := r.tx.tx.NewInsert().
		Model(model).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("description = EXCLUDED.description").
		Set("merge_base = EXCLUDED.merge_base").
		Set("merge_head = EXCLUDED.merge_head").
		Set("recorded_at = EXCLUDED.recorded_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("record issue %s: %w", id, err)
	}
	return nil
}

func (r *Recorder) RecordComment(ctx context.Context, issueID string, id *string, parent *string, text *string) error {
	model := &commentModel{IssueID: issueID, CommentID: id, ParentID: parent, Text: text, RecordedAt: r.stamp}
	if _, err := r.tx.tx.NewInsert().Model(model).Exec(ctx); err != nil {
		return fmt.Errorf("record comment on issue %s: %w", issueID, err)
	}
	return nil
}

type Issue struct {
	ID           string
	Title        string
	Description  *string
	MergeRequest *platform.MergeRequest
}

// Issues returns the recorded issues ordered by id.
func (l *Ledger) Issues(ctx context.Context) ([]Issue, error) {
	var models []issueModel
	if err := l.db.NewSelect().Model(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("read issues: %w", err)
	}
	issues := make([]Issue, 0, len(models))
	for _, m := range models {
		issue := Issue{ID: m.ID, Title: m.Title, Description: m.Description}
		if m.MergeBase != nil && m.MergeHead != nil {
			issue.MergeRequest = &platform.MergeRequest{Base: *m.MergeBase, Head: *m.MergeHead}
		}
		issues = append(issues, issue)
	}
	return issues, nil
}
