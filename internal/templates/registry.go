package templates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"campaignmap/internal"
	"campaignmap/internal/log"
)

var (
	ErrNotFound        = errors.New("template not found")
	ErrBuiltinTemplate = errors.New("builtin templates cannot be deleted")
	ErrInvalidTemplate = errors.New("invalid template")
)

//go:generate mockgen -source=registry.go -destination=mocks/mock_store.go -package=mocks

// Store persists the user template overrides as one serialized blob.
// Load returns nil data when nothing has been stored yet.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Persist(ctx context.Context, data []byte) error
}

// Registry is the merged view of builtin templates and user overrides.
// User entries win on id collision.
type Registry struct {
	mu      sync.RWMutex
	store   Store
	builtin []internal.Template
	view    []internal.Template
	now     func() time.Time
}

type exportedTemplate struct {
	ID         string                    `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string                    `json:"name" yaml:"name"`
	Mapping    internal.Mapping          `json:"mapping" yaml:"mapping"`
	Labels     map[internal.Field]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	ExportedAt string                    `json:"exportedAt,omitempty" yaml:"exportedAt,omitempty"`
}

func NewRegistry(ctx context.Context, store Store) *Registry {
	r := &Registry{store: store, builtin: Builtin(), now: time.Now}
	r.Reload(ctx)
	return r
}

// Reload rebuilds the in-memory view from the store.
func (r *Registry) Reload(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, err := r.loadUser(ctx)
	if err != nil {
		log.L.WithError(err).Error("load user templates, using builtins only")
	}
	r.view = r.merge(user)
}

func (r *Registry) List() []internal.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]internal.Template, len(r.view))
	for i, t := range r.view {
		out[i] = cloneTemplate(t)
	}
	return out
}

func (r *Registry) Get(id string) (internal.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.view {
		if t.ID == id {
			return cloneTemplate(t), true
		}
	}
	return internal.Template{}, false
}

func (r *Registry) Save(ctx context.Context, id string, tpl internal.Template) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTemplate)
	}
	if err := checkTemplate(tpl); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.loadUser(ctx)
	if err != nil {
		return err
	}
	tpl = cloneTemplate(tpl)
	tpl.ID = id
	if strings.TrimSpace(tpl.DisplayName) == "" {
		tpl.DisplayName = id
	}
	user[id] = tpl

	if err := r.persist(ctx, user); err != nil {
		return err
	}
	r.view = r.merge(user)
	log.L.WithFields(log.Fields{"template": id, "fields": len(tpl.FieldMapping)}).Info("template saved")
	return nil
}

// Delete removes a user override. Builtin templates survive; deleting an
// overridden builtin id restores the shipped version.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.loadUser(ctx)
	if err != nil {
		return err
	}
	if _, ok := user[id]; !ok {
		if r.isBuiltin(id) {
			return fmt.Errorf("%w: %s", ErrBuiltinTemplate, id)
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(user, id)

	if err := r.persist(ctx, user); err != nil {
		return err
	}
	r.view = r.merge(user)
	log.L.WithField("template", id).Info("template deleted")
	return nil
}

// Export serializes a template as JSON with its id and an export timestamp.
func (r *Registry) Export(id string) ([]byte, error) {
	payload, err := r.exportPayload(id)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(payload, "", "  ")
}

func (r *Registry) ExportYAML(id string) ([]byte, error) {
	payload, err := r.exportPayload(id)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(payload)
}

// Import accepts a JSON or YAML export and saves it. The embedded id is used
// as the key when present, otherwise one is generated from the clock.
func (r *Registry) Import(ctx context.Context, data []byte) (string, error) {
	var payload exportedTemplate
	trimmed := bytes.TrimSpace(data)
	var err error
	if bytes.HasPrefix(trimmed, []byte("{")) {
		err = json.Unmarshal(trimmed, &payload)
	} else {
		err = yaml.Unmarshal(trimmed, &payload)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	id := strings.TrimSpace(payload.ID)
	if id == "" {
		id = fmt.Sprintf("custom_%d", r.now().UnixMilli())
	}

	tpl := internal.Template{
		DisplayName:  payload.Name,
		FieldMapping: payload.Mapping,
		FieldLabels:  payload.Labels,
	}
	if err := r.Save(ctx, id, tpl); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Registry) exportPayload(id string) (exportedTemplate, error) {
	tpl, ok := r.Get(id)
	if !ok {
		return exportedTemplate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return exportedTemplate{
		ID:         tpl.ID,
		Name:       tpl.DisplayName,
		Mapping:    tpl.FieldMapping,
		Labels:     tpl.FieldLabels,
		ExportedAt: r.now().UTC().Format(time.RFC3339),
	}, nil
}

// loadUser reports store read errors. Corrupt data is not an error: it
// degrades to no overrides and the next write replaces it.
func (r *Registry) loadUser(ctx context.Context) (map[string]internal.Template, error) {
	user := map[string]internal.Template{}
	if r.store == nil {
		return user, nil
	}

	data, err := r.store.Load(ctx)
	if err != nil {
		return user, fmt.Errorf("load user templates: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return user, nil
	}

	var decoded map[string]internal.Template
	if err := json.Unmarshal(data, &decoded); err != nil {
		log.L.WithError(err).Error("corrupt user templates, using builtins only")
		return user, nil
	}
	for id, tpl := range decoded {
		if checkTemplate(tpl) != nil {
			log.L.WithField("template", id).Warnf("skipping stored template with invalid mapping")
			continue
		}
		tpl.ID = id
		user[id] = tpl
	}
	return user, nil
}

func (r *Registry) persist(ctx context.Context, user map[string]internal.Template) error {
	if r.store == nil {
		return nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := r.store.Persist(ctx, data); err != nil {
		return fmt.Errorf("persist templates: %w", err)
	}
	return nil
}

func (r *Registry) merge(user map[string]internal.Template) []internal.Template {
	out := make([]internal.Template, 0, len(r.builtin)+len(user))
	seen := map[string]bool{}
	for _, b := range r.builtin {
		if u, ok := user[b.ID]; ok {
			out = append(out, u)
		} else {
			out = append(out, b)
		}
		seen[b.ID] = true
	}

	extra := make([]string, 0, len(user))
	for id := range user {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		out = append(out, user[id])
	}
	return out
}

func (r *Registry) isBuiltin(id string) bool {
	for _, b := range r.builtin {
		if b.ID == id {
			return true
		}
	}
	return false
}

func checkTemplate(tpl internal.Template) error {
	if len(tpl.FieldMapping) == 0 {
		return fmt.Errorf("%w: empty mapping", ErrInvalidTemplate)
	}
	for field := range tpl.FieldMapping {
		if !field.Valid() {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidTemplate, field)
		}
	}
	return nil
}

func cloneTemplate(t internal.Template) internal.Template {
	out := t
	out.FieldMapping = t.FieldMapping.Clone()
	if t.FieldLabels != nil {
		out.FieldLabels = make(map[internal.Field]string, len(t.FieldLabels))
		for k, v := range t.FieldLabels {
			out.FieldLabels[k] = v
		}
	}
	return out
}
