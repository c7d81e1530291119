package contentservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sushihentaime/showcase/internal/attachment"
	"github.com/sushihentaime/showcase/internal/common"
)

func NewEntityService(db *sql.DB, r Resource, store *attachment.Store, c *common.Cache, logger *slog.Logger) *EntityService {
	return &EntityService{
		r:      r,
		m:      newContentModel(db, r),
		store:  store,
		c:      c,
		logger: logger.With(slog.String("resource", r.Name)),
	}
}

func (s *EntityService) Resource() Resource {
	return s.r
}

// Create stores the uploaded files, then inserts the row. Files are removed again if the insert fails.
func (s *EntityService) Create(ctx context.Context, in Input) (*Entity, error) {
	v := common.NewValidator()
	validateInput(v, s.r, in, true)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	e := newEntity(s.r)
	applyFields(s.r, e, in.Fields)

	saved, err := s.saveUploads(in.Files)
	if err != nil {
		return nil, err
	}
	for slot, name := range saved {
		e.Slots[slot] = &name
	}

	err = s.m.insert(ctx, e)
	if err != nil {
		s.discard(saved)
		return nil, err
	}

	s.invalidate(e.ID)

	return s.resolve(e), nil
}

// Update applies supplied fields and replaces slots that received a new file. Omitted fields and slots keep their
// stored value, an empty string clears a field. Replaced files are deleted once the row is written.
func (s *EntityService) Update(ctx context.Context, id int, in Input) (*Entity, error) {
	if id < 1 {
		return nil, common.ErrRecordNotFound
	}

	existing, err := s.m.selectByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v := common.NewValidator()
	validateInput(v, s.r, in, false)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	saved, err := s.saveUploads(in.Files)
	if err != nil {
		return nil, err
	}

	e := existing.clone()
	applyFields(s.r, e, in.Fields)
	for slot, name := range saved {
		e.Slots[slot] = &name
	}

	err = s.m.update(ctx, e)
	if err != nil {
		s.discard(saved)
		return nil, err
	}

	for slot, name := range saved {
		old := existing.Slots[slot]
		if old == nil || *old == name {
			continue
		}
		if err := s.store.Delete(*old); err != nil {
			s.logger.Error("could not delete replaced attachment", slog.String("slot", slot), slog.String("file", *old), slog.String("error", err.Error()))
		}
	}

	s.invalidate(id)

	return s.resolve(e), nil
}

// Delete removes every referenced file, then the row.
func (s *EntityService) Delete(ctx context.Context, id int) error {
	if id < 1 {
		return common.ErrRecordNotFound
	}

	e, err := s.m.selectByID(ctx, id)
	if err != nil {
		return err
	}

	for _, slot := range s.r.Slots {
		name := e.Slots[slot]
		if name == nil {
			continue
		}

		err := s.store.Delete(*name)
		if err != nil {
			switch {
			case errors.Is(err, attachment.ErrInvalidName):
				s.logger.Warn("skipping invalid stored filename", slog.Int("id", id), slog.String("slot", slot), slog.String("file", *name))
			default:
				return err
			}
		}
	}

	err = s.m.delete(ctx, id)
	if err != nil {
		return err
	}

	s.invalidate(id)

	return nil
}

// List returns every entity, most recent first.
func (s *EntityService) List(ctx context.Context) ([]*Entity, error) {
	key := common.CacheKeyEntities(s.r.Name)
	if cached, ok := s.c.Get(key); ok {
		return cached.([]*Entity), nil
	}

	gen := s.generation()
	entities, err := s.m.selectAll(ctx)
	if err != nil {
		return nil, err
	}

	resolved := make([]*Entity, len(entities))
	for i, e := range entities {
		resolved[i] = s.resolve(e)
	}

	s.cache(key, gen, resolved)

	return resolved, nil
}

func (s *EntityService) GetByID(ctx context.Context, id int) (*Entity, error) {
	if id < 1 {
		return nil, common.ErrRecordNotFound
	}

	key := common.CacheKeyEntity(s.r.Name, id)
	if cached, ok := s.c.Get(key); ok {
		return cached.(*Entity), nil
	}

	gen := s.generation()
	e, err := s.m.selectByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resolved := s.resolve(e)
	s.cache(key, gen, resolved)

	return resolved, nil
}

// Reconcile deletes files in the upload directory that no row references and that are older than grace.
// It returns the number of files removed.
func (s *EntityService) Reconcile(ctx context.Context, grace time.Duration) (int, error) {
	files, err := s.store.List()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, nil
	}

	names, err := s.m.storedFilenames(ctx)
	if err != nil {
		return 0, err
	}

	referenced := make(map[string]struct{}, len(names))
	for _, n := range names {
		referenced[n] = struct{}{}
	}

	cutoff := time.Now().Add(-grace)
	removed := 0
	for _, f := range files {
		if _, ok := referenced[f.Name]; ok || f.ModTime.After(cutoff) {
			continue
		}

		if err := s.store.Delete(f.Name); err != nil {
			return removed, fmt.Errorf("could not remove orphaned file %s: %w", f.Name, err)
		}
		s.logger.Info("removed orphaned attachment", slog.String("file", f.Name))
		removed++
	}

	return removed, nil
}

// saveUploads stores the files of every known slot. On failure the files saved so far are removed.
func (s *EntityService) saveUploads(files map[string]Upload) (map[string]string, error) {
	saved := make(map[string]string, len(files))

	for _, slot := range s.r.Slots {
		upload, ok := files[slot]
		if !ok {
			continue
		}

		name, err := s.store.Save(upload.Filename, upload.Content)
		if err != nil {
			s.discard(saved)
			return nil, fmt.Errorf("could not save %s: %w", slot, err)
		}
		saved[slot] = name
	}

	return saved, nil
}

func (s *EntityService) discard(saved map[string]string) {
	for slot, name := range saved {
		if err := s.store.Delete(name); err != nil {
			s.logger.Error("could not remove unused attachment", slog.String("slot", slot), slog.String("file", name), slog.String("error", err.Error()))
		}
	}
}

func (s *EntityService) resolve(e *Entity) *Entity {
	out := e.clone()
	for _, slot := range s.r.Slots {
		out.Slots[slot] = s.store.Resolve(e.Slots[slot])
	}
	return out
}

func (s *EntityService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// cache stores v unless a write invalidated the resource after gen was read, so a read that overlapped a write
// never repopulates the cache with the older row.
func (s *EntityService) cache(key string, gen uint64, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen == gen {
		s.c.Set(key, v)
	}
}

func (s *EntityService) invalidate(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.c.Delete(common.CacheKeyEntity(s.r.Name, id), common.CacheKeyEntities(s.r.Name))
}

// applyFields copies supplied fields of r onto e. Unknown names are ignored and an empty string clears the field.
func applyFields(r Resource, e *Entity, fields map[string]string) {
	for _, f := range r.Fields {
		value, ok := fields[f.Name]
		if !ok {
			continue
		}
		if value == "" {
			e.Fields[f.Name] = nil
			continue
		}
		e.Fields[f.Name] = &value
	}
}
