// Package pipeline orchestrates the logbot flow: ingestors feed processor chains whose
// records fan out to every enabled emitter.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/emitter"
	"github.com/GabrielNunesIT/logbot/internal/ingestor"
	"github.com/GabrielNunesIT/logbot/internal/logging"
	"github.com/GabrielNunesIT/logbot/internal/model"
	"github.com/GabrielNunesIT/logbot/internal/processor"
)

// LaunchSource is the entry source of the startup record.
const LaunchSource = "logbot"

// managedIngestor wraps an ingestor with its lifecycle management.
type managedIngestor struct {
	ingestor  ingestor.Ingestor
	processor *processor.Chain
	cancel    context.CancelFunc
	done      chan struct{}
}

// managedEmitter wraps an emitter with its lifecycle management.
type managedEmitter struct {
	emitter emitter.Emitter
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIngestor registers an ingestor in addition to the configured ones.
func WithIngestor(ing ingestor.Ingestor) Option {
	return func(p *Pipeline) {
		p.extraIngestors = append(p.extraIngestors, ing)
	}
}

// WithEmitter registers an emitter in addition to the configured ones.
func WithEmitter(em emitter.Emitter) Option {
	return func(p *Pipeline) {
		p.extraEmitters = append(p.extraEmitters, em)
	}
}

// Pipeline coordinates ingestors, processors, and emitters.
type Pipeline struct {
	cfg    *config.Config
	root   logging.ILogger
	logger logging.ILogger
	mu     sync.RWMutex

	ingestors map[string]*managedIngestor
	emitters  map[string]*managedEmitter

	extraIngestors []ingestor.Ingestor
	extraEmitters  []emitter.Emitter

	// enricher is shared by every chain so all records carry the same session.
	enricher *processor.Enricher

	// fanoutChan receives processed entries for distribution to emitters.
	fanoutChan chan *model.LogEntry

	// added tracks ingestors started by Reconfigure; closing refuses new ones.
	added   sync.WaitGroup
	closing bool

	// runCtx is the main run context
	runCtx    context.Context
	runCancel context.CancelFunc
}

// New creates a new pipeline from configuration.
func New(cfg *config.Config, log logging.ILogger, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:        cfg,
		root:       log,
		logger:     log.SubLogger("Pipeline"),
		ingestors:  make(map[string]*managedIngestor),
		emitters:   make(map[string]*managedEmitter),
		fanoutChan: make(chan *model.LogEntry, cfg.Pipeline.BufferSize),
	}
	for _, opt := range opts {
		opt(p)
	}

	if cfg.Processor.Enricher.Enabled {
		p.enricher = processor.NewEnricher(cfg.Processor.Enricher)
	}

	if err := p.buildIngestors(); err != nil {
		return nil, fmt.Errorf("building ingestors: %w", err)
	}

	if err := p.buildEmitters(); err != nil {
		return nil, fmt.Errorf("building emitters: %w", err)
	}

	return p, nil
}

// newIngestor creates the named configured ingestor.
func (p *Pipeline) newIngestor(name string, cfg *config.Config) (ingestor.Ingestor, error) {
	switch name {
	case "stdin":
		return ingestor.NewStdinIngestor(cfg.Ingestors.Stdin, p.root), nil
	case "file":
		return ingestor.NewFileIngestor(cfg.Ingestors.File, p.root), nil
	case "listen":
		return ingestor.NewListenIngestor(cfg.Ingestors.Listen, p.root), nil
	default:
		return nil, fmt.Errorf("unknown ingestor: %s", name)
	}
}

// enabledIngestors lists the configured ingestors by name.
func enabledIngestors(cfg *config.Config) map[string]bool {
	return map[string]bool{
		"stdin":  cfg.Ingestors.Stdin.Enabled,
		"file":   cfg.Ingestors.File.Enabled,
		"listen": cfg.Ingestors.Listen.Enabled,
	}
}

// buildIngestors creates enabled ingestors with their processor chains.
func (p *Pipeline) buildIngestors() error {
	for name, enabled := range enabledIngestors(p.cfg) {
		if !enabled {
			continue
		}
		ing, err := p.newIngestor(name, p.cfg)
		if err != nil {
			return err
		}
		if err := p.registerIngestor(name, ing); err != nil {
			return err
		}
	}

	for _, ing := range p.extraIngestors {
		if err := p.registerIngestor(ing.Name(), ing); err != nil {
			return err
		}
	}

	if len(p.ingestors) == 0 {
		return config.ErrNoIngestors
	}

	p.logger.Debugf("built %d ingestors", len(p.ingestors))
	return nil
}

func (p *Pipeline) registerIngestor(name string, ing ingestor.Ingestor) error {
	chain, err := p.buildProcessorChain(p.cfg)
	if err != nil {
		return err
	}
	p.ingestors[name] = &managedIngestor{
		ingestor:  ing,
		processor: chain,
		done:      make(chan struct{}),
	}
	return nil
}

// buildProcessorChain creates a processor chain from config. Every ingestor gets its own
// chain since the IRC parser tracks channel membership per stream.
func (p *Pipeline) buildProcessorChain(cfg *config.Config) (*processor.Chain, error) {
	chain := processor.NewChain()

	if cfg.Processor.Records.Enabled {
		parser, err := processor.NewParser(cfg.Processor.Records)
		if err != nil {
			return nil, fmt.Errorf("creating parser: %w", err)
		}
		chain.Add(parser)
	}

	if cfg.Processor.IRC.Enabled {
		chain.Add(processor.NewIRCParser(cfg.Processor.IRC, cfg.Server))
	}

	if p.enricher != nil {
		chain.Add(p.enricher)
	}

	return chain, nil
}

// newEmitter creates the named configured emitter.
func (p *Pipeline) newEmitter(name string, cfg *config.Config) (emitter.Emitter, error) {
	switch name {
	case "syslog":
		return emitter.NewSyslogEmitter(cfg.Shipper, p.root), nil
	case "console":
		return emitter.NewConsoleEmitter(cfg.Emitters.Console, p.root), nil
	case "archive":
		return emitter.NewArchiveEmitter(cfg.Emitters.Archive, p.root), nil
	case "elasticsearch":
		return emitter.NewElasticsearchEmitter(cfg.Emitters.Elasticsearch, p.root), nil
	default:
		return nil, fmt.Errorf("unknown emitter: %s", name)
	}
}

// enabledEmitters lists the configured emitters by name.
func enabledEmitters(cfg *config.Config) map[string]bool {
	return map[string]bool{
		"syslog":        cfg.Emitters.Syslog.Enabled,
		"console":       cfg.Emitters.Console.Enabled,
		"archive":       cfg.Emitters.Archive.Enabled,
		"elasticsearch": cfg.Emitters.Elasticsearch.Enabled,
	}
}

// buildEmitters creates enabled emitters.
func (p *Pipeline) buildEmitters() error {
	for name, enabled := range enabledEmitters(p.cfg) {
		if !enabled {
			continue
		}
		em, err := p.newEmitter(name, p.cfg)
		if err != nil {
			return err
		}
		p.emitters[name] = &managedEmitter{emitter: em}
	}

	for _, em := range p.extraEmitters {
		p.emitters[em.Name()] = &managedEmitter{emitter: em}
	}

	if len(p.emitters) == 0 {
		return config.ErrNoEmitters
	}

	p.logger.Debugf("built %d emitters", len(p.emitters))
	return nil
}

// Run starts the pipeline and blocks until context is cancelled or every ingestor is done.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	p.runCtx, p.runCancel = context.WithCancel(ctx)
	p.mu.Unlock()
	defer p.runCancel()

	// Start all emitters
	p.mu.RLock()
	started := make(map[string]emitter.Emitter, len(p.emitters))
	for name, me := range p.emitters {
		if err := me.emitter.Start(p.runCtx); err != nil {
			p.mu.RUnlock()
			p.stopEmitters(started)
			return fmt.Errorf("starting emitter %s: %w", name, err)
		}
		started[name] = me.emitter
		p.logger.Debugf("started emitter: %s", name)
	}
	p.mu.RUnlock()

	p.logLaunch(p.runCtx)

	ingestG, ingestCtx := errgroup.WithContext(p.runCtx)

	// Start each ingestor with its own context
	p.mu.Lock()
	for name, mi := range p.ingestors {
		ingestorCtx, cancel := context.WithCancel(ingestCtx)
		mi.cancel = cancel

		ingestG.Go(func() error {
			defer close(mi.done)
			p.logger.Debugf("started ingestor: %s", name)
			return p.runIngestorPipeline(ingestorCtx, name, mi)
		})
	}
	p.mu.Unlock()

	// Start fanout goroutine; it drains until the ingestors are done.
	fanoutDone := make(chan struct{})
	go func() {
		defer close(fanoutDone)
		p.runFanout(p.runCtx)
	}()

	err := ingestG.Wait()

	// Ingestors that end on their own (stdin EOF) still get their entries delivered.
	p.mu.Lock()
	p.closing = true
	p.mu.Unlock()
	p.runCancel()
	p.added.Wait()
	close(p.fanoutChan)
	<-fanoutDone

	// Graceful shutdown
	p.shutdown()

	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// logLaunch fans out the startup record.
func (p *Pipeline) logLaunch(ctx context.Context) {
	if p.cfg.Pipeline.LaunchMessage == "" {
		return
	}
	entry := model.NewRecordEntry(LaunchSource, map[string]any{
		"action": "launch",
		"server": p.cfg.Server,
		"text":   p.cfg.Pipeline.LaunchMessage,
	})
	if p.enricher != nil {
		entries, err := p.enricher.Process(ctx, entry)
		if err == nil && len(entries) == 1 {
			entry = entries[0]
		}
	}
	p.emitToAll(ctx, entry)
}

// shutdown gracefully stops all emitters.
func (p *Pipeline) shutdown() {
	p.mu.RLock()
	ems := make(map[string]emitter.Emitter, len(p.emitters))
	for name, me := range p.emitters {
		ems[name] = me.emitter
	}
	p.mu.RUnlock()

	p.stopEmitters(ems)
	p.logger.Debug("all emitters stopped")
}

// stopEmitters stops ems within the shutdown timeout.
func (p *Pipeline) stopEmitters(ems map[string]emitter.Emitter) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), p.cfg.Pipeline.ShutdownTimeout)
	defer cancel()

	for name, em := range ems {
		if err := em.Stop(shutdownCtx); err != nil {
			p.logger.Warningf("emitter stop error: name=%s, error=%v", name, err)
		}
	}
}

// runIngestorPipeline runs a single ingestor and its processor chain.
func (p *Pipeline) runIngestorPipeline(ctx context.Context, name string, mi *managedIngestor) error {
	rawChan := make(chan *model.LogEntry, p.cfg.Pipeline.BufferSize)

	var wg sync.WaitGroup

	// Start processor goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range rawChan {
			entries, err := mi.processor.Process(ctx, entry)
			if err != nil {
				p.logger.Debugf("processor error: ingestor=%s, error=%v", name, err)
				continue
			}
			for _, out := range entries {
				if !p.forward(ctx, out) {
					return
				}
			}
		}
	}()

	// Run the ingestor; it closes rawChan, which lets the processor drain.
	err := mi.ingestor.Start(ctx, rawChan)
	wg.Wait()

	p.logger.Debugf("ingestor stopped: name=%s", name)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// forward hands an entry to the fanout. It reports false once ctx is done.
func (p *Pipeline) forward(ctx context.Context, entry *model.LogEntry) bool {
	select {
	case p.fanoutChan <- entry:
		return true
	case <-ctx.Done():
		return false
	default:
	}

	if p.cfg.Pipeline.DropOnFullBuffer {
		p.logger.Debug("buffer full, dropping entry")
		return true
	}
	select {
	case p.fanoutChan <- entry:
		return true
	case <-ctx.Done():
		return false
	}
}

// runFanout distributes entries to all emitters until the fanout channel is closed.
func (p *Pipeline) runFanout(ctx context.Context) {
	for entry := range p.fanoutChan {
		p.emitToAll(ctx, entry)
	}
}

// emitToAll sends an entry to all enabled emitters.
func (p *Pipeline) emitToAll(ctx context.Context, entry *model.LogEntry) {
	p.mu.RLock()
	emitters := make([]emitter.Emitter, 0, len(p.emitters))
	for _, me := range p.emitters {
		emitters = append(emitters, me.emitter)
	}
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, e := range emitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Emitters must still see entries drained during shutdown.
			if err := e.Emit(context.WithoutCancel(ctx), entry.Clone()); err != nil {
				p.logger.Debugf("emit error: emitter=%s, error=%v", e.Name(), err)
			}
		}()
	}
	wg.Wait()
}

// Reconfigure applies a new configuration: the log level, and emitters or ingestors
// that were switched on or off. The collector set is fixed for a shipper's lifetime, so
// shipper changes only take effect after a restart.
func (p *Pipeline) Reconfigure(newCfg *config.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runCtx == nil {
		return fmt.Errorf("pipeline is not running")
	}

	oldCfg := p.cfg
	p.cfg = newCfg

	if oldCfg.LogLevel != newCfg.LogLevel {
		p.root.SetLevel(logging.ParseLevel(newCfg.LogLevel))
		p.logger.Infof("log level changed: %s -> %s", oldCfg.LogLevel, newCfg.LogLevel)
	}

	if !reflect.DeepEqual(oldCfg.Shipper, newCfg.Shipper) {
		p.logger.Warning("shipper configuration changed; restart logbot to apply it")
	}

	// Handle ingestor changes
	if err := p.reconfigureIngestors(oldCfg, newCfg); err != nil {
		return fmt.Errorf("reconfiguring ingestors: %w", err)
	}

	// Handle emitter changes
	if err := p.reconfigureEmitters(oldCfg, newCfg); err != nil {
		return fmt.Errorf("reconfiguring emitters: %w", err)
	}

	p.logger.Infof("configuration applied: ingestors=%d, emitters=%d",
		len(p.ingestors), len(p.emitters))

	return nil
}

// reconfigureIngestors handles adding/removing ingestors.
func (p *Pipeline) reconfigureIngestors(oldCfg, newCfg *config.Config) error {
	oldIngestors := enabledIngestors(oldCfg)
	newIngestors := enabledIngestors(newCfg)

	// Remove disabled ingestors
	for name, wasEnabled := range oldIngestors {
		if wasEnabled && !newIngestors[name] {
			p.removeIngestor(name)
		}
	}

	// Add newly enabled ingestors
	for name, enabled := range newIngestors {
		if enabled && !oldIngestors[name] {
			if err := p.addIngestor(name, newCfg); err != nil {
				return err
			}
		}
	}

	return nil
}

// addIngestor adds a new ingestor at runtime.
func (p *Pipeline) addIngestor(name string, cfg *config.Config) error {
	if p.closing {
		return fmt.Errorf("pipeline is shutting down")
	}

	ing, err := p.newIngestor(name, cfg)
	if err != nil {
		return err
	}

	chain, err := p.buildProcessorChain(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(p.runCtx)
	mi := &managedIngestor{
		ingestor:  ing,
		processor: chain,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	p.ingestors[name] = mi

	// Start the ingestor in background
	p.added.Add(1)
	go func() {
		defer p.added.Done()
		defer close(mi.done)
		if err := p.runIngestorPipeline(ctx, name, mi); err != nil {
			p.logger.Warningf("ingestor error: name=%s, error=%v", name, err)
		}
	}()

	p.logger.Infof("ingestor added: %s", name)
	return nil
}

// removeIngestor stops and removes an ingestor.
func (p *Pipeline) removeIngestor(name string) {
	mi, ok := p.ingestors[name]
	if !ok {
		return
	}

	// Cancel the ingestor context
	if mi.cancel != nil {
		mi.cancel()
	}

	delete(p.ingestors, name)
	p.logger.Infof("ingestor removed: %s", name)
}

// reconfigureEmitters handles adding/removing emitters. The syslog emitter stays as it is.
func (p *Pipeline) reconfigureEmitters(oldCfg, newCfg *config.Config) error {
	oldEmitters := enabledEmitters(oldCfg)
	newEmitters := enabledEmitters(newCfg)
	delete(oldEmitters, "syslog")
	delete(newEmitters, "syslog")

	// Remove disabled emitters
	for name, wasEnabled := range oldEmitters {
		if wasEnabled && !newEmitters[name] {
			p.removeEmitter(name)
		}
	}

	// Add newly enabled emitters
	for name, enabled := range newEmitters {
		if enabled && !oldEmitters[name] {
			if err := p.addEmitter(name, newCfg); err != nil {
				return err
			}
		}
	}

	return nil
}

// addEmitter adds a new emitter at runtime.
func (p *Pipeline) addEmitter(name string, cfg *config.Config) error {
	em, err := p.newEmitter(name, cfg)
	if err != nil {
		return err
	}

	if err := em.Start(p.runCtx); err != nil {
		return fmt.Errorf("starting emitter %s: %w", name, err)
	}

	p.emitters[name] = &managedEmitter{emitter: em}

	p.logger.Infof("emitter added: %s", name)
	return nil
}

// removeEmitter stops and removes an emitter.
func (p *Pipeline) removeEmitter(name string) {
	me, ok := p.emitters[name]
	if !ok {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), p.cfg.Pipeline.ShutdownTimeout)
	defer cancel()

	if err := me.emitter.Stop(shutdownCtx); err != nil {
		p.logger.Warningf("emitter stop error: name=%s, error=%v", name, err)
	}

	delete(p.emitters, name)
	p.logger.Infof("emitter removed: %s", name)
}

// IngestorCount returns the number of enabled ingestors.
func (p *Pipeline) IngestorCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ingestors)
}

// EmitterCount returns the number of enabled emitters.
func (p *Pipeline) EmitterCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.emitters)
}

// Session returns the session id stamped on records, or "" when enrichment is off.
func (p *Pipeline) Session() string {
	if p.enricher == nil {
		return ""
	}
	return p.enricher.Session()
}
