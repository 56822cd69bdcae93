// internal/services/lexicon_watcher.go
package services

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Corphon/SceneSplitter/internal/splitter"
	"github.com/Corphon/SceneSplitter/internal/utils"
)

const defaultLexiconDebounce = 300 * time.Millisecond

// LexiconWatcher 监视词典文件，变化时重新加载并回调
type LexiconWatcher struct {
	mu       sync.Mutex
	path     string
	watcher  *fsnotify.Watcher
	onReload func(splitter.Lexicon)
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool

	reloads atomic.Int64
	logger  *utils.Logger
}

// NewLexiconWatcher 创建词典监视器，Start 之后生效
func NewLexiconWatcher(path string, onReload func(splitter.Lexicon)) (*LexiconWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &LexiconWatcher{
		path:     abs,
		watcher:  watcher,
		onReload: onReload,
		debounce: defaultLexiconDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   utils.GetLogger(),
	}, nil
}

// Start 监视词典所在目录（编辑器保存时常以重命名替换文件）
func (w *LexiconWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.running = true

	go w.run()

	w.logger.Info("词典监视已启动", map[string]interface{}{"path": w.path})
	return nil
}

// Stop 停止监视并释放资源，可重复调用
func (w *LexiconWatcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("关闭词典监视器失败", map[string]interface{}{"err": err.Error()})
	}
}

// Reloads 成功重新加载的次数
func (w *LexiconWatcher) Reloads() int64 {
	return w.reloads.Load()
}

func (w *LexiconWatcher) run() {
	defer close(w.doneCh)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// 连续保存只触发一次重载
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("词典监视错误", map[string]interface{}{"err": err.Error()})

		case <-timer.C:
			w.reload()
		}
	}
}

// reload 解析失败时保留原词典
func (w *LexiconWatcher) reload() {
	lex, err := splitter.LoadLexicon(w.path)
	if err != nil {
		w.logger.Warn("重新加载词典失败，继续使用原词典", map[string]interface{}{
			"path": w.path,
			"err":  err.Error(),
		})
		return
	}

	w.reloads.Add(1)
	if w.onReload != nil {
		w.onReload(lex)
	}
}
