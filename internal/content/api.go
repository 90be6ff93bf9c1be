package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/greenfield-academy/website/internal/telemetry/metrics"
	"github.com/greenfield-academy/website/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	megabyte               = 1024 * 1024
	DefaultCacheSizeMB     = 16
	DefaultCacheExpiration = 5 * time.Minute
)

type recordsRepo interface {
	Add(ctx context.Context, record *Record) (*Record, error)
	AddSubscriber(ctx context.Context, email string) (*Record, error)
	Get(ctx context.Context, kind Kind, id int) (*Record, error)
	List(ctx context.Context, kind Kind, activeOnly bool) ([]Record, error)
	Update(ctx context.Context, record *Record) (*Record, error)
	Deactivate(ctx context.Context, kind Kind, id int) error
}

// Api serves content records. Public listings are cached per kind and the
// cache entry of a kind is dropped on every admin write to that kind.
type Api struct {
	repo          recordsRepo
	cache         *freecache.Cache
	cacheExpireIn int
	metrics       *metrics.Manager

	// generations counts invalidations per kind. A listing read from the repo
	// is only cached if no write to its kind was invalidated meanwhile.
	generationsMutex sync.Mutex
	generations      map[Kind]uint64
}

func NewApi(
	repo recordsRepo,
	cacheSizeMB int,
	cacheExpiration time.Duration,
	metricsManager *metrics.Manager,
) *Api {
	if cacheSizeMB <= 0 {
		cacheSizeMB = DefaultCacheSizeMB
	}
	if cacheExpiration <= 0 {
		cacheExpiration = DefaultCacheExpiration
	}

	return &Api{
		repo:          repo,
		cache:         freecache.NewCache(cacheSizeMB * megabyte),
		cacheExpireIn: int(cacheExpiration.Seconds()),
		metrics:       metricsManager,
		generations:   make(map[Kind]uint64),
	}
}

func listCacheKey(kind Kind) []byte {
	return []byte("list::" + string(kind))
}

func (api *Api) invalidate(kind Kind) {
	api.generationsMutex.Lock()
	defer api.generationsMutex.Unlock()
	api.generations[kind]++
	api.cache.Del(listCacheKey(kind))
}

func (api *Api) generation(kind Kind) uint64 {
	api.generationsMutex.Lock()
	defer api.generationsMutex.Unlock()
	return api.generations[kind]
}

// cacheListing stores the listing unless the kind was invalidated after
// generation was read.
func (api *Api) cacheListing(kind Kind, generation uint64, recordsBytes []byte) error {
	api.generationsMutex.Lock()
	defer api.generationsMutex.Unlock()
	if api.generations[kind] != generation {
		return nil
	}
	return api.cache.Set(listCacheKey(kind), recordsBytes, api.cacheExpireIn)
}

// ListActive returns the active records of a public kind, newest first.
func (api *Api) ListActive(ctx context.Context, kind Kind) (records []Record, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "contentApi.listActive")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	span.SetAttributes(attribute.String("content.kind", string(kind)))

	if !kind.IsPublic() {
		return nil, ErrUnknownKind
	}

	cacheKey := listCacheKey(kind)
	if cached, err := api.cache.Get(cacheKey); err == nil {
		if err := json.Unmarshal(cached, &records); err == nil {
			api.metrics.CounterContentCache.WithLabelValues("hit").Inc()
			span.SetStatus(codes.Ok, "cache-hit")
			return records, nil
		} else {
			log.Errorf("failed to unmarshal cached %s records: %s", kind, err)
		}
	}
	api.metrics.CounterContentCache.WithLabelValues("miss").Inc()

	generation := api.generation(kind)
	records, err = api.repo.List(ctx, kind, true)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}

	recordsBytes, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal %s records: %w", kind, err)
	}
	if err := api.cacheListing(kind, generation, recordsBytes); err != nil {
		log.Errorf("failed to write %s records cache: %s", kind, err)
	}

	span.SetStatus(codes.Ok, "ok")
	return records, nil
}

// GetActive hides inactive records the same way as missing ones.
func (api *Api) GetActive(ctx context.Context, kind Kind, id int) (*Record, error) {
	if !kind.IsPublic() {
		return nil, ErrUnknownKind
	}
	record, err := api.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !record.IsActive {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

func (api *Api) List(ctx context.Context, kind Kind) ([]Record, error) {
	records, err := api.repo.List(ctx, kind, false)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (api *Api) Get(ctx context.Context, kind Kind, id int) (*Record, error) {
	return api.repo.Get(ctx, kind, id)
}

// recordTitle keeps subscriber titles in the same normalized form Subscribe
// stores, so the unique address index holds for admin writes too.
func recordTitle(kind Kind, title string) (string, error) {
	if kind == KindSubscribers {
		return normalizeEmail(title)
	}
	return strings.TrimSpace(title), nil
}

func (api *Api) Create(ctx context.Context, kind Kind, in RecordInput) (*Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	title, err := recordTitle(kind, in.Title)
	if err != nil {
		return nil, err
	}

	added, err := api.repo.Add(ctx, &Record{
		Kind:     kind,
		Title:    title,
		Body:     in.Body,
		Data:     in.data(),
		IsActive: in.isActive(),
	})
	if err != nil {
		return nil, err
	}

	api.invalidate(kind)
	api.metrics.CounterContentWrites.WithLabelValues(string(kind), "create").Inc()
	return added, nil
}

func (api *Api) Update(ctx context.Context, kind Kind, id int, in RecordInput) (*Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	title, err := recordTitle(kind, in.Title)
	if err != nil {
		return nil, err
	}

	updated, err := api.repo.Update(ctx, &Record{
		ID:       id,
		Kind:     kind,
		Title:    title,
		Body:     in.Body,
		Data:     in.data(),
		IsActive: in.isActive(),
	})
	if err != nil {
		return nil, err
	}

	api.invalidate(kind)
	api.metrics.CounterContentWrites.WithLabelValues(string(kind), "update").Inc()
	return updated, nil
}

func (api *Api) Deactivate(ctx context.Context, kind Kind, id int) error {
	if err := api.repo.Deactivate(ctx, kind, id); err != nil {
		return err
	}

	api.invalidate(kind)
	api.metrics.CounterContentWrites.WithLabelValues(string(kind), "delete").Inc()
	return nil
}

// Subscribe stores a newsletter subscription. Addresses are compared case
// insensitively and a soft deleted subscriber is reactivated.
func (api *Api) Subscribe(ctx context.Context, email string) (*Record, error) {
	address, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	record, err := api.repo.AddSubscriber(ctx, address)
	if err != nil {
		if errors.Is(err, ErrAlreadySubscribed) {
			return nil, err
		}
		return nil, fmt.Errorf("add subscriber: %w", err)
	}

	api.invalidate(KindSubscribers)
	api.metrics.CounterSubscribers.Inc()
	return record, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return "", ErrInvalidEmail
	}
	if !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".") {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
