package classify

import (
	"sync"

	"kharcha/internal/cache"
	"kharcha/internal/core"
	"kharcha/internal/log"
)

// predictionCacheSize bounds the memoized fallback predictions. Rule-tier
// hits are cheap and never cached.
const predictionCacheSize = 512

// Detector is the full two-tier classifier handed to the web layer.
type Detector struct {
	store  *Store
	cache  *cache.LRU[core.Category]
	logger *log.Logger

	mu        sync.Mutex
	cachedGen uint64
}

// NewDetector wires a detector around a model store.
func NewDetector(store *Store, logger *log.Logger) *Detector {
	return &Detector{
		store:  store,
		cache:  cache.New[core.Category](predictionCacheSize),
		logger: logger.WithComponent("classifier"),
	}
}

// Detect returns exactly one category for a description, never empty.
// The keyword table is consulted first regardless of model state; the
// trained fallback covers the rest; Others is the floor.
func (d *Detector) Detect(description string) core.Category {
	if category, ok := RuleCategory(description); ok {
		return category
	}

	d.purgeIfModelChanged()

	key := normalizeText(description)
	if category, ok := d.cache.Get(key); ok {
		return category
	}

	category, ok := d.store.Predict(description)
	if !ok {
		return core.Others
	}

	d.cache.Set(key, category)
	d.logger.Debug("fallback classification", "description", description, "category", category)
	return category
}

// Train retrains the fallback model and drops memoized predictions so stale
// labels cannot outlive the model that produced them.
func (d *Detector) Train(examples []core.TrainingExample) error {
	if err := d.store.Train(examples); err != nil {
		return err
	}
	d.cache.Purge()
	d.logger.Info("classifier retrained", "examples", len(examples))
	return nil
}

// purgeIfModelChanged drops memoized predictions when another process has
// swapped in a newer model (noticed via the store's generation counter).
func (d *Detector) purgeIfModelChanged() {
	gen := d.store.Generation()
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.cachedGen {
		d.cache.Purge()
		d.cachedGen = gen
	}
}
