package repository

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/citizenwatch/roadwatch-server/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	reportsCollection       = "reports"
	statusChangesCollection = "statusChanges"
)

// Firestore stores reports as documents in a Cloud Firestore collection.
// Document ids are generated by Firestore.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (f *Firestore) Create(ctx context.Context, nr models.NewReport) (models.Report, error) {
	ref := f.client.Collection(reportsCollection).NewDoc()
	r := models.Report{
		ID:          ref.ID,
		IssueType:   nr.IssueType,
		Description: nr.Description,
		Location:    nr.Location,
		PhotoURL:    nr.PhotoURL,
		Status:      nr.Status,
		CreatedAt:   nr.CreatedAt,
	}

	if _, err := ref.Create(ctx, r); err != nil {
		return models.Report{}, fmt.Errorf("create report document: %w", err)
	}
	return r, nil
}

func (f *Firestore) List(ctx context.Context) ([]models.Report, error) {
	docs, err := f.client.Collection(reportsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list report documents: %w", err)
	}

	reports := make([]models.Report, 0, len(docs))
	for _, doc := range docs {
		var r models.Report
		if err := doc.DataTo(&r); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", doc.Ref.ID, err)
		}
		r.ID = doc.Ref.ID
		reports = append(reports, r)
	}
	return reports, nil
}

func (f *Firestore) Get(ctx context.Context, id string) (*models.Report, error) {
	ref := f.doc(id)
	if ref == nil {
		return nil, ErrNotFound
	}

	doc, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report document: %w", err)
	}

	var r models.Report
	if err := doc.DataTo(&r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	r.ID = doc.Ref.ID
	return &r, nil
}

func (f *Firestore) UpdateStatus(ctx context.Context, id string, s models.Status) error {
	ref := f.doc(id)
	if ref == nil {
		return ErrNotFound
	}

	// Update fails with NotFound when the document does not exist.
	_, err := ref.Update(ctx, []firestore.Update{{Path: "status", Value: string(s)}})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	return nil
}

func (f *Firestore) AppendStatusChange(ctx context.Context, c models.StatusChange) error {
	ref := f.doc(c.ReportID)
	if ref == nil {
		return ErrNotFound
	}

	if _, _, err := ref.Collection(statusChangesCollection).Add(ctx, c); err != nil {
		return fmt.Errorf("add status change: %w", err)
	}
	return nil
}

func (f *Firestore) ListStatusChanges(ctx context.Context, reportID string) ([]models.StatusChange, error) {
	ref := f.doc(reportID)
	if ref == nil {
		return []models.StatusChange{}, nil
	}

	docs, err := ref.Collection(statusChangesCollection).
		OrderBy("at", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list status changes: %w", err)
	}

	changes := make([]models.StatusChange, 0, len(docs))
	for _, doc := range docs {
		var c models.StatusChange
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("decode status change: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, nil
}

func (f *Firestore) Ping(ctx context.Context) error {
	_, err := f.client.Collection(reportsCollection).Limit(1).Documents(ctx).GetAll()
	return err
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

// maxDocIDBytes is Firestore's limit on a document id.
const maxDocIDBytes = 1500

// doc returns nil for ids Firestore cannot address, so they read as
// unknown reports instead of InvalidArgument errors.
func (f *Firestore) doc(id string) *firestore.DocumentRef {
	if !validDocID(id) {
		return nil
	}
	return f.client.Collection(reportsCollection).Doc(id)
}

func validDocID(id string) bool {
	switch {
	case id == "", id == ".", id == "..":
		return false
	case len(id) > maxDocIDBytes, strings.Contains(id, "/"):
		return false
	case len(id) >= 4 && strings.HasPrefix(id, "__") && strings.HasSuffix(id, "__"):
		return false
	}
	return true
}
