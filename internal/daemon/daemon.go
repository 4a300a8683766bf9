package daemon

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hpcloud/tail"

	vigilant "github.com/Chichichkin/vigilant-go"
)

// LineSink receives every tailed line. *vigilant.Logger implements it.
type LineSink interface {
	Log(level vigilant.Level, message string, attrs vigilant.Attributes)
}

// MetricEmitter receives the periodic counter report. *vigilant.MetricsHandler
// implements it.
type MetricEmitter interface {
	Emit(name string, value float64, attrs vigilant.Attributes)
}

type LogDaemonService struct {
	config        Config
	sink          LineSink
	emitter       MetricEmitter
	fileQueue     chan string
	workersWg     sync.WaitGroup
	subServicesWg sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
	stopOnce      sync.Once
	metrics       *LogDaemonMetrics

	filesMutex  sync.Mutex
	seenFiles   map[string]struct{}
	activeFiles map[string]struct{}
}

type Config struct {
	LogRootPath    string
	ScanInterval   time.Duration
	Workers        int
	FileQueueSize  int
	NodeName       string
	ReportInterval time.Duration
	// If > 0, stop tailing a file after this period without new lines
	FileIdleTimeout time.Duration
}

// NewLogDaemonService creates 3 + config.Workers goroutines on Start(). emitter
// may be nil, in which case counters are only logged.
func NewLogDaemonService(ctx context.Context, config Config, sink LineSink, emitter MetricEmitter) *LogDaemonService {
	nCtx, cancel := context.WithCancel(ctx)

	return &LogDaemonService{
		config:    config,
		sink:      sink,
		emitter:   emitter,
		fileQueue: make(chan string, config.FileQueueSize),
		ctx:       nCtx,
		cancel:    cancel,
		metrics: &LogDaemonMetrics{
			FilesQueueCapacity: config.FileQueueSize,
		},
		seenFiles:   make(map[string]struct{}),
		activeFiles: make(map[string]struct{}),
	}
}

func (s *LogDaemonService) Start() {
	log.Printf("Starting log daemon service: root=%s, workers=%d, queue size=%d",
		s.config.LogRootPath, s.config.Workers, s.config.FileQueueSize)

	for i := 0; i < s.config.Workers; i++ {
		s.workersWg.Add(1)
		go s.worker(i)
	}

	s.subServicesWg.Add(2)
	go s.scanner()
	go s.metricsReporter()

	log.Println("Log daemon service started")
}

// Stop cancels scanning and tailing and waits for every goroutine to exit.
func (s *LogDaemonService) Stop() {
	s.stopOnce.Do(func() {
		log.Println("Stopping log daemon service...")
		s.cancel()

		s.subServicesWg.Wait()

		close(s.fileQueue)
		s.workersWg.Wait()

		log.Println("Log daemon service stopped")
	})
}

func (s *LogDaemonService) Metrics() LogDaemonMetrics {
	return s.metrics.GetMetricsStamp()
}

func (s *LogDaemonService) worker(id int) {
	defer s.workersWg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d panicked: %v", id, r)
		}
	}()

	s.metrics.IncWorkersActive()
	defer s.metrics.DecWorkersActive()

	for {
		select {
		case filePath, ok := <-s.fileQueue:
			if !ok {
				return
			}
			s.metrics.DecAmountQueueFiles()
			s.metrics.IncWorkersBusy()
			s.processFile(s.ctx, filePath)
			s.metrics.DecWorkersBusy()
			s.releaseFile(filePath)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *LogDaemonService) processFile(ctx context.Context, filePath string) {
	defer s.metrics.IncFilesProcessed()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("File processing panicked for %s: %v", filePath, r)
			s.metrics.IncFilesFailed()
		}
	}()

	t, err := tail.TailFile(filePath, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Poll:     true,
		Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:   tail.DiscardingLogger,
	})
	if err != nil {
		log.Printf("Failed to tail file %s: %v", filePath, err)
		s.metrics.IncFilesFailed()
		return
	}
	defer t.Cleanup()
	defer func() { _ = t.Stop() }()

	labels := s.extractLabels(filePath)

	checkTicker := time.NewTicker(1 * time.Second)
	defer checkTicker.Stop()

	lastActivity := time.Now()

	for {
		select {
		case line, ok := <-t.Lines:
			if !ok {
				return
			}
			if line == nil {
				continue
			}
			if line.Err != nil {
				log.Printf("Error reading from %s: %v", filePath, line.Err)
				continue
			}
			if strings.TrimSpace(line.Text) == "" {
				continue
			}

			s.sink.Log(detectLevel(line.Text), line.Text, labels)
			s.metrics.IncLinesForwarded()
			lastActivity = time.Now()

		case <-checkTicker.C:
			// waking up from blocking line reading to check context status and idle timeout
			if s.config.FileIdleTimeout > 0 && time.Since(lastActivity) > s.config.FileIdleTimeout {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *LogDaemonService) scanner() {
	defer s.subServicesWg.Done()

	s.scanFiles()

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.scanFiles()

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *LogDaemonService) scanFiles() {
	files, err := s.discoverLogFiles()
	if err != nil {
		log.Printf("Error discovering log files: %v", err)
		return
	}

	for _, file := range files {
		if !s.claimFile(file) {
			continue
		}
		select {
		case s.fileQueue <- file:
			s.metrics.IncAmountQueueFiles()
		case <-s.ctx.Done():
			s.releaseFile(file)
			return

		default:
			s.releaseFile(file)
			log.Printf("File queue full (%d/%d), skipping %s",
				len(s.fileQueue), cap(s.fileQueue), file)
		}
	}
}

// claimFile marks file as queued or being tailed. It returns false when the
// file is already claimed, so a file is never tailed twice at once.
func (s *LogDaemonService) claimFile(file string) bool {
	s.filesMutex.Lock()
	defer s.filesMutex.Unlock()

	if _, ok := s.seenFiles[file]; !ok {
		s.metrics.IncFilesDiscovered()
		s.seenFiles[file] = struct{}{}
	}
	if _, ok := s.activeFiles[file]; ok {
		return false
	}
	s.activeFiles[file] = struct{}{}
	return true
}

func (s *LogDaemonService) releaseFile(file string) {
	s.filesMutex.Lock()
	defer s.filesMutex.Unlock()
	delete(s.activeFiles, file)
}

func (s *LogDaemonService) metricsReporter() {
	defer s.subServicesWg.Done()

	ticker := time.NewTicker(s.config.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportMetrics()

		case <-s.ctx.Done():
			s.reportMetrics()
			return
		}
	}
}

func (s *LogDaemonService) reportMetrics() {
	metrics := s.metrics.GetMetricsStamp()

	log.Printf(
		"Metrics: workers active=%d, workers busy=%d, queue status=%d/%d (%d%%), files=%d/%d, failed=%d, lines=%d",
		metrics.WorkersActive,
		metrics.WorkersBusy,
		metrics.QueuedFiles, s.config.FileQueueSize, int(s.metrics.GetQueueUsage()*100),
		metrics.FilesProcessed, metrics.FilesDiscovered,
		metrics.FilesFailed,
		metrics.LinesForwarded,
	)

	if s.emitter == nil {
		return
	}
	attrs := vigilant.Attributes{"node": s.config.NodeName}
	s.emitter.Emit("agent.files_discovered", float64(metrics.FilesDiscovered), attrs)
	s.emitter.Emit("agent.files_processed", float64(metrics.FilesProcessed), attrs)
	s.emitter.Emit("agent.files_failed", float64(metrics.FilesFailed), attrs)
	s.emitter.Emit("agent.lines_forwarded", float64(metrics.LinesForwarded), attrs)
	s.emitter.Emit("agent.workers_busy", float64(metrics.WorkersBusy), attrs)
}

func (s *LogDaemonService) discoverLogFiles() ([]string, error) {
	var logFiles []string

	err := filepath.Walk(s.config.LogRootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Printf("Error accessing path %s: %v", path, err)
			return nil
		}

		if !info.IsDir() && strings.HasSuffix(info.Name(), ".log") {
			logFiles = append(logFiles, path)
		}
		return nil
	})

	return logFiles, err
}

// extractLabels derives attributes from a kubelet pod log path of the form
// /var/log/pods/<namespace>_<pod>_<uid>/<container>/<n>.log.
func (s *LogDaemonService) extractLabels(filePath string) vigilant.Attributes {
	labels := vigilant.Attributes{
		"node": s.config.NodeName,
		"file": filepath.Base(filePath),
	}

	parts := strings.Split(filePath, "/")
	if len(parts) >= 5 {
		podParts := strings.Split(parts[4], "_")
		if len(podParts) >= 3 {
			labels["namespace"] = podParts[0]
			labels["pod"] = podParts[1]
			labels["pod_uid"] = podParts[2]
		}

		if len(parts) >= 6 {
			labels["container"] = parts[5]
		}
	}

	return labels
}

func detectLevel(line string) vigilant.Level {
	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "ERROR"), strings.Contains(upper, "FATAL"), strings.Contains(upper, "PANIC"):
		return vigilant.LevelError
	case strings.Contains(upper, "WARN"):
		return vigilant.LevelWarning
	case strings.Contains(upper, "DEBUG"):
		return vigilant.LevelDebug
	default:
		return vigilant.LevelInfo
	}
}
