package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"PaperFeed/internal/domain"
)

const maxPerPage = 100

var paperColumns = []string{
	"id", "external_id", "title", "abstract", "authors", "categories",
	"published_at", "updated_at", "pdf_url", "page_url",
	"evaluated", "recommended", "reason", "evaluated_at",
	"translated_title", "translated_abstract",
	"disposition", "disposition_at", "note", "summary_folded", "created_at",
}

// UpsertIngested inserts a freshly ingested paper; an existing external id is left untouched.
func (r *Repository) UpsertIngested(ctx context.Context, paper domain.Paper) (domain.IngestResult, error) {
	if strings.TrimSpace(paper.ExternalID) == "" {
		return 0, fmt.Errorf("upsert paper: %w: empty external id", domain.ErrInvalidArgument)
	}

	authors, err := encodeList(paper.Authors)
	if err != nil {
		return 0, fmt.Errorf("encode authors: %w", err)
	}
	categories, err := encodeList(paper.Categories)
	if err != nil {
		return 0, fmt.Errorf("encode categories: %w", err)
	}

	query, args, err := r.sb.Insert("papers").
		Columns("external_id", "title", "abstract", "authors", "categories",
			"published_at", "updated_at", "pdf_url", "page_url", "created_at").
		Values(paper.ExternalID, paper.Title, paper.Abstract, authors, categories,
			formatTime(paper.PublishedAt), formatTime(paper.UpdatedAt), paper.PDFURL, paper.PageURL,
			formatTime(r.now())).
		Suffix("ON CONFLICT (external_id) DO NOTHING").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build upsert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.IngestAlreadyPresent, fmt.Errorf("upsert paper %s: %w", paper.ExternalID, domain.ErrDuplicateIdentifier)
		}
		return 0, fmt.Errorf("upsert paper %s: %w", paper.ExternalID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.IngestAlreadyPresent, nil
	}
	return domain.IngestInserted, nil
}

// Get loads a single paper by surrogate id.
func (r *Repository) Get(ctx context.Context, id int64) (domain.Paper, error) {
	papers, err := r.selectPapers(ctx, r.sb.Select(paperColumns...).From("papers").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Paper{}, err
	}
	if len(papers) == 0 {
		return domain.Paper{}, fmt.Errorf("paper %d: %w", id, domain.ErrNotFound)
	}
	return papers[0], nil
}

// FetchUnevaluated returns the backlog, most recently published first.
func (r *Repository) FetchUnevaluated(ctx context.Context, limit int) ([]domain.Paper, error) {
	builder := r.sb.Select(paperColumns...).From("papers").
		Where(sq.Eq{"evaluated": false}).
		OrderBy("published_at DESC", "id DESC").
		Limit(clampLimit(limit))
	return r.selectPapers(ctx, builder)
}

// FetchReadyUnseen returns evaluated, recommended papers the user has not disposed of yet.
func (r *Repository) FetchReadyUnseen(ctx context.Context, limit int) ([]domain.Paper, error) {
	builder := r.sb.Select(paperColumns...).From("papers").
		Where(sq.Eq{
			"evaluated":   true,
			"recommended": true,
			"disposition": domain.DispositionNone.String(),
		}).
		OrderBy("recommended DESC", "published_at DESC", "id DESC").
		Limit(clampLimit(limit))
	return r.selectPapers(ctx, builder)
}

// RecordEvaluation writes the verdict once; a second writer gets ErrAlreadyEvaluated.
func (r *Repository) RecordEvaluation(ctx context.Context, id int64, verdict domain.Verdict) error {
	builder := r.sb.Update("papers").
		Set("evaluated", true).
		Set("recommended", verdict.Recommended).
		Set("reason", verdict.Reason).
		Set("evaluated_at", formatTime(r.now())).
		Where(sq.Eq{"id": id, "evaluated": false})

	affected, err := r.exec(ctx, builder)
	if err != nil {
		return fmt.Errorf("record evaluation %d: %w", id, err)
	}
	if affected > 0 {
		return nil
	}
	return r.missingOr(ctx, id, domain.ErrAlreadyEvaluated)
}

// RecordTranslation stores the localized title and abstract.
func (r *Repository) RecordTranslation(ctx context.Context, id int64, translation domain.Translation) error {
	builder := r.sb.Update("papers").
		Set("translated_title", translation.Title).
		Set("translated_abstract", translation.Abstract).
		Where(sq.Eq{"id": id})

	affected, err := r.exec(ctx, builder)
	if err != nil {
		return fmt.Errorf("record translation %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("paper %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SetDisposition overwrites the user decision. Re-applying the current value keeps its timestamp,
// and entering favorite from another state queues the paper for the next summary fold.
func (r *Repository) SetDisposition(ctx context.Context, id int64, disposition domain.Disposition, note string) error {
	if !disposition.Valid() {
		return fmt.Errorf("set disposition %d: invalid value %d", id, disposition)
	}
	value := disposition.String()

	builder := r.sb.Update("papers").
		Set("disposition_at", sq.Expr("CASE WHEN disposition = ? THEN disposition_at ELSE ? END", value, formatTime(r.now())))
	if disposition == domain.DispositionFavorite {
		builder = builder.Set("summary_folded", sq.Expr("CASE WHEN disposition = ? THEN summary_folded ELSE ? END", value, false))
	}
	builder = builder.Set("disposition", value)

	switch {
	case disposition == domain.DispositionNone:
		builder = builder.Set("note", "")
	case note != "":
		builder = builder.Set("note", note)
	}

	where := sq.And{sq.Eq{"id": id}}
	if disposition != domain.DispositionNone {
		where = append(where, sq.Eq{"evaluated": true})
	}
	builder = builder.Where(where)

	affected, err := r.exec(ctx, builder)
	if err != nil {
		return fmt.Errorf("set disposition %d: %w", id, err)
	}
	if affected > 0 {
		return nil
	}
	return r.missingOr(ctx, id, domain.ErrNotEvaluated)
}

// FetchUnfoldedFavorites returns favorites not yet folded into the interest summary.
func (r *Repository) FetchUnfoldedFavorites(ctx context.Context) ([]domain.Paper, error) {
	builder := r.sb.Select(paperColumns...).From("papers").
		Where(sq.Eq{
			"disposition":    domain.DispositionFavorite.String(),
			"summary_folded": false,
		}).
		OrderBy("disposition_at ASC", "id ASC")
	return r.selectPapers(ctx, builder)
}

// MarkFolded flags a paper as incorporated into the running summary.
func (r *Repository) MarkFolded(ctx context.Context, id int64) error {
	affected, err := r.exec(ctx, r.sb.Update("papers").Set("summary_folded", true).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("mark folded %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("paper %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByDisposition pages through papers with the given disposition, most recent decision first.
func (r *Repository) ListByDisposition(ctx context.Context, disposition domain.Disposition, page, perPage int) (domain.Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	filter := sq.Eq{"disposition": disposition.String()}
	total, err := r.count(ctx, filter)
	if err != nil {
		return domain.Page{}, err
	}

	builder := r.sb.Select(paperColumns...).From("papers").
		Where(filter).
		OrderBy("disposition_at DESC", "id DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage))
	papers, err := r.selectPapers(ctx, builder)
	if err != nil {
		return domain.Page{}, err
	}

	return domain.Page{Papers: papers, Total: total, Page: page, PerPage: perPage}, nil
}

// PurgeStale deletes old undecided or disliked papers; favorites and maybe-later are never touched.
// With deleteAll every disliked paper goes regardless of age.
func (r *Repository) PurgeStale(ctx context.Context, cutoff time.Time, deleteAll bool) (int64, error) {
	builder := r.sb.Delete("papers")
	if deleteAll {
		builder = builder.Where(sq.Eq{"disposition": domain.DispositionDislike.String()})
	} else {
		builder = builder.Where(sq.And{
			sq.Lt{"published_at": formatTime(cutoff)},
			sq.Eq{"disposition": purgeableDispositions()},
		})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge stale: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

func purgeableDispositions() []string {
	all := []domain.Disposition{
		domain.DispositionNone,
		domain.DispositionFavorite,
		domain.DispositionMaybeLater,
		domain.DispositionDislike,
	}
	var names []string
	for _, d := range all {
		if !d.Protected() {
			names = append(names, d.String())
		}
	}
	return names
}

// CountUnevaluated reports the size of the evaluation backlog.
func (r *Repository) CountUnevaluated(ctx context.Context) (int, error) {
	return r.count(ctx, sq.Eq{"evaluated": false})
}

// CountReady reports how many recommendations wait for the user.
func (r *Repository) CountReady(ctx context.Context) (int, error) {
	return r.count(ctx, sq.Eq{
		"evaluated":   true,
		"recommended": true,
		"disposition": domain.DispositionNone.String(),
	})
}

func (r *Repository) count(ctx context.Context, filter sq.Sqlizer) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").From("papers").Where(filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return total, nil
}

func (r *Repository) exec(ctx context.Context, builder sq.Sqlizer) (int64, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// missingOr distinguishes an absent row from a row that failed the write precondition.
func (r *Repository) missingOr(ctx context.Context, id int64, otherwise error) error {
	query, args, err := r.sb.Select("1").From("papers").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build exists: %w", err)
	}
	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("paper %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check paper %d: %w", id, err)
	}
	return fmt.Errorf("paper %d: %w", id, otherwise)
}

func (r *Repository) selectPapers(ctx context.Context, builder sq.SelectBuilder) ([]domain.Paper, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query papers: %w", err)
	}

	var papers []domain.Paper
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		papers = append(papers, paper)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return papers, nil
}

func scanPaper(rows *sql.Rows) (domain.Paper, error) {
	var (
		paper                               domain.Paper
		authors, categories, disposition    string
		publishedAt, updatedAt, evaluatedAt string
		dispositionAt, createdAt            string
	)

	err := rows.Scan(
		&paper.ID, &paper.ExternalID, &paper.Title, &paper.Abstract, &authors, &categories,
		&publishedAt, &updatedAt, &paper.PDFURL, &paper.PageURL,
		&paper.Evaluated, &paper.Recommended, &paper.Reason, &evaluatedAt,
		&paper.TranslatedTitle, &paper.TranslatedAbstract,
		&disposition, &dispositionAt, &paper.Note, &paper.SummaryFolded, &createdAt,
	)
	if err != nil {
		return domain.Paper{}, fmt.Errorf("scan paper: %w", err)
	}

	if paper.Authors, err = decodeList(authors); err != nil {
		return domain.Paper{}, fmt.Errorf("decode authors of %s: %w", paper.ExternalID, err)
	}
	if paper.Categories, err = decodeList(categories); err != nil {
		return domain.Paper{}, fmt.Errorf("decode categories of %s: %w", paper.ExternalID, err)
	}
	if paper.Disposition, err = domain.ParseDisposition(disposition); err != nil {
		return domain.Paper{}, fmt.Errorf("paper %s: %w", paper.ExternalID, err)
	}

	paper.PublishedAt = parseTime(publishedAt)
	paper.UpdatedAt = parseTime(updatedAt)
	paper.EvaluatedAt = parseTime(evaluatedAt)
	paper.DispositionAt = parseTime(dispositionAt)
	paper.CreatedAt = parseTime(createdAt)

	return paper, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeList(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func clampLimit(limit int) uint64 {
	if limit < 1 {
		return 1
	}
	return uint64(limit)
}
