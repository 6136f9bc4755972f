package memory

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/novasvilla/facelift/internal/logging"
)

// FirestoreStore keeps the hierarchy under projects/{id}/sections/{id}
// in a named Firestore database. The client is initialized lazily; an
// init failure disables the store for the rest of the process and every
// call reports it as an error for the propagator to fall back on.
type FirestoreStore struct {
	project  string
	database string

	mu       sync.Mutex
	client   *firestore.Client
	disabled bool
}

func NewFirestoreStore(project, database string) *FirestoreStore {
	return &FirestoreStore{project: project, database: database}
}

func (s *FirestoreStore) getClient(ctx context.Context) (*firestore.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return nil, fmt.Errorf("firestore disabled after failed init")
	}
	if s.client != nil {
		return s.client, nil
	}
	client, err := firestore.NewClientWithDatabase(ctx, s.project, s.database)
	if err != nil {
		s.disabled = true
		return nil, fmt.Errorf("firestore init failed: %w", err)
	}
	logging.Memory("firestore connected: project=%s db=%s", s.project, s.database)
	s.client = client
	return s.client, nil
}

func (s *FirestoreStore) projectDoc(client *firestore.Client, projectID string) *firestore.DocumentRef {
	return client.Collection("projects").Doc(projectID)
}

func (s *FirestoreStore) GetProject(ctx context.Context, projectID string) (ProjectMemory, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return ProjectMemory{}, err
	}
	snap, err := s.projectDoc(client, projectID).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return ProjectMemory{}, nil
		}
		return ProjectMemory{}, fmt.Errorf("firestore project read failed: %w", err)
	}
	var m ProjectMemory
	if err := snap.DataTo(&m); err != nil {
		return ProjectMemory{}, fmt.Errorf("firestore project decode failed: %w", err)
	}
	return m, nil
}

func (s *FirestoreStore) SetProject(ctx context.Context, projectID string, m ProjectMemory) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}
	data := make(map[string]any)
	if m.Style != "" {
		data["style"] = m.Style
	}
	if m.StyleSummary != "" {
		data["style_summary"] = m.StyleSummary
	}
	if m.SectionsOverview != nil {
		data["sections_overview"] = m.SectionsOverview
	}
	if len(data) == 0 {
		return nil
	}
	if _, err := s.projectDoc(client, projectID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore project write failed: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetSection(ctx context.Context, projectID, sectionID string) (SectionMemory, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return SectionMemory{}, err
	}
	snap, err := s.projectDoc(client, projectID).Collection("sections").Doc(sectionID).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return SectionMemory{}, nil
		}
		return SectionMemory{}, fmt.Errorf("firestore section read failed: %w", err)
	}
	var m SectionMemory
	if err := snap.DataTo(&m); err != nil {
		return SectionMemory{}, fmt.Errorf("firestore section decode failed: %w", err)
	}
	return m, nil
}

func (s *FirestoreStore) SetSection(ctx context.Context, projectID, sectionID string, m SectionMemory) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}
	data := make(map[string]any)
	if m.Type != "" {
		data["type"] = m.Type
	}
	if m.StyleSummary != "" {
		data["style_summary"] = m.StyleSummary
	}
	if m.LastSpec != "" {
		data["last_spec"] = m.LastSpec
	}
	if len(data) == 0 {
		return nil
	}
	if _, err := s.projectDoc(client, projectID).Collection("sections").Doc(sectionID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore section write failed: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListSections(ctx context.Context, projectID string) (map[string]SectionMemory, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}
	sections := make(map[string]SectionMemory)
	iter := s.projectDoc(client, projectID).Collection("sections").Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore sections list failed: %w", err)
		}
		var m SectionMemory
		if err := snap.DataTo(&m); err != nil {
			logging.MemoryWarn("skipping undecodable section %s/%s: %v", projectID, snap.Ref.ID, err)
			continue
		}
		sections[snap.Ref.ID] = m
	}
	return sections, nil
}
