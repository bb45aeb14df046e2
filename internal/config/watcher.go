package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher 配置热更新监听器
// 当前只用于运行期调整日志级别等可热更的配置项
type Watcher struct {
	configPath string
	viper      *viper.Viper
	callbacks  []func(*Config)
	stopped    bool
	mu         sync.Mutex
}

// NewWatcher 创建配置监听器
func NewWatcher(configPath string) *Watcher {
	v := viper.New()
	v.SetConfigFile(configPath)

	return &Watcher{
		configPath: configPath,
		viper:      v,
	}
}

// OnChange 注册配置变更回调
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start 启动配置监听
func (w *Watcher) Start() error {
	if err := w.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	w.viper.WatchConfig()
	w.viper.OnConfigChange(func(e fsnotify.Event) {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		callbacks := make([]func(*Config), len(w.callbacks))
		copy(callbacks, w.callbacks)
		w.mu.Unlock()

		var newCfg Config
		if err := w.viper.Unmarshal(&newCfg); err != nil {
			return
		}
		// 回调在锁外执行,避免回调里再注册时死锁
		for _, callback := range callbacks {
			callback(&newCfg)
		}
	})

	return nil
}

// Stop 停止配置监听
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
}
