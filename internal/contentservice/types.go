package contentservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sushihentaime/showcase/internal/attachment"
	"github.com/sushihentaime/showcase/internal/common"
)

// Entity is a blog post, visit or promotion. Field and slot values are nil when absent.
type Entity struct {
	ID        int
	Fields    map[string]*string
	Slots     map[string]*string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Upload is a file submitted for an attachment slot.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Input carries the fields and files of a create or update request. A field missing from Fields was not supplied.
type Input struct {
	Fields map[string]string
	Files  map[string]Upload
}

type EntityService struct {
	r      Resource
	m      repository
	store  fileStore
	c      *common.Cache
	logger *slog.Logger

	// mu guards gen, which counts cache invalidations.
	mu  sync.Mutex
	gen uint64
}

type ContentModel struct {
	db *sql.DB
	r  Resource
	q  queries
}

type queries struct {
	insert          string
	selectAll       string
	selectByID      string
	update          string
	delete          string
	storedFilenames string
}

type repository interface {
	insert(ctx context.Context, e *Entity) error
	selectAll(ctx context.Context) ([]*Entity, error)
	selectByID(ctx context.Context, id int) (*Entity, error)
	update(ctx context.Context, e *Entity) error
	delete(ctx context.Context, id int) error
	storedFilenames(ctx context.Context) ([]string, error)
}

type fileStore interface {
	Dir() string
	Save(originalName string, r io.Reader) (string, error)
	Delete(name string) error
	Resolve(name *string) *string
	List() ([]attachment.FileInfo, error)
}

// newEntity returns an entity with every field and slot of r present and absent.
func newEntity(r Resource) *Entity {
	e := &Entity{
		Fields: make(map[string]*string, len(r.Fields)),
		Slots:  make(map[string]*string, len(r.Slots)),
	}
	for _, f := range r.Fields {
		e.Fields[f.Name] = nil
	}
	for _, s := range r.Slots {
		e.Slots[s] = nil
	}
	return e
}

func (e *Entity) clone() *Entity {
	c := &Entity{
		ID:        e.ID,
		Fields:    make(map[string]*string, len(e.Fields)),
		Slots:     make(map[string]*string, len(e.Slots)),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	for k, v := range e.Fields {
		c.Fields[k] = v
	}
	for k, v := range e.Slots {
		c.Slots[k] = v
	}
	return c
}

// MarshalJSON flattens fields and slots into a single object next to id and timestamps.
func (e *Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+len(e.Slots)+3)
	for k, v := range e.Fields {
		out[k] = v
	}
	for k, v := range e.Slots {
		out[k] = v
	}
	out["id"] = e.ID
	out["created_at"] = e.CreatedAt
	out["updated_at"] = e.UpdatedAt

	return json.Marshal(out)
}
