// 包 workspace：显式持有的工作区实例，装配目录、注册表、上下文生成器与字段命名解析器
// 背景：替代进程级隐式加载的全局注册表；所有使用方通过引用共享同一实例，生命周期由 Load/Dispose 显式控制
package workspace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"lbs-core/internal/catalog"
	"lbs-core/internal/config"
	"lbs-core/internal/logger"
	"lbs-core/internal/model"
	"lbs-core/internal/namespace"
	"lbs-core/internal/registry"
	"lbs-core/internal/sectionctx"
	"lbs-core/internal/store"
)

type Workspace struct {
	Catalog   *catalog.Catalog
	Registry  *registry.Registry
	Generator *sectionctx.Generator
	Resolver  *namespace.Memo

	gateway store.Gateway
	cancels []func()
	once    sync.Once
	log     *slog.Logger
}

// New：在给定网关上装配组件；不读取持久化状态（见 Load）
func New(cfg config.Config, g store.Gateway, opts ...registry.Option) *Workspace {
	w := store.NewWriter(g)
	cat := catalog.New(w)
	reg := registry.New(w, cat, opts...)
	ws := &Workspace{
		Catalog:   cat,
		Registry:  reg,
		Generator: sectionctx.New(reg),
		Resolver:  namespace.New(cfg.Strategy(), cfg.FieldKeyCacheSize),
		gateway:   g,
		log:       logger.With("workspace"),
	}
	// 约束：重新编号后章节标识与后缀的映射可能改变，必须整体失效
	ws.cancels = append(ws.cancels, reg.Subscribe(func(ev registry.Event) {
		if ev.Op.Renumbers() {
			ws.Resolver.InvalidateAll()
			ws.log.Debug("field_keys_invalidated", "op", ev.Op)
		}
	}))
	return ws
}

// Open：按配置打开网关并装配、加载工作区
func Open(ctx context.Context, cfg config.Config, opts ...registry.Option) (*Workspace, error) {
	g, err := config.OpenGateway(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ws := New(cfg, g, opts...)
	if err := ws.Load(ctx); err != nil {
		ws.log.Warn("workspace_load_partial", "err", err)
	}
	return ws, nil
}

// Gateway：底层持久化网关
func (ws *Workspace) Gateway() store.Gateway { return ws.gateway }

// Load：读取目录与两个组集合；损坏的条目被跳过，错误合并返回
func (ws *Workspace) Load(ctx context.Context) error {
	errCat := ws.Catalog.Load(ctx)
	errReg := ws.Registry.Load(ctx)
	ws.log.Info("workspace_loaded", "centros", ws.Catalog.Len(),
		"aisd", ws.Registry.Count(model.AISD), "aisi", ws.Registry.Count(model.AISI))
	return errors.Join(errCat, errReg)
}

// Dispose：取消内部订阅并关闭网关（若可关闭）；重复调用无副作用
func (ws *Workspace) Dispose() error {
	var err error
	ws.once.Do(func() {
		for _, c := range ws.cancels {
			c()
		}
		ws.cancels = nil
		ws.Resolver.InvalidateAll()
		if cl, ok := ws.gateway.(io.Closer); ok {
			err = cl.Close()
		}
		ws.log.Debug("workspace_disposed")
	})
	return err
}
