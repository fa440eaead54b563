// Desktray puts the desk presets in the system tray.
//
// Picking a preset moves the desk there; "Configure Desk..." pairs with the first
// desk in range and remembers it. Failures are shown as desktop notifications.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"go.uber.org/zap"

	"github.com/mlsorensen/godesk"
	"github.com/mlsorensen/godesk/internal/config"
	"github.com/mlsorensen/godesk/internal/logging"
)

const appID = "io.github.mlsorensen.godesk"

type tray struct {
	app  fyne.App
	desk desktop.App
	cfg  *config.Config
	ctrl *godesk.Controller
	log  *zap.Logger

	ctx context.Context

	menu       *fyne.Menu
	heightItem *fyne.MenuItem

	// busy is held while a desk operation runs so clicks are not queued up.
	busy sync.Mutex
}

func main() {
	if err := logging.Initialize(""); err != nil {
		log.Fatalf("Fatal: invalid log level: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fatal: could not load config: %v", err)
	}
	if cfg.Logging.Level != "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		if err := logging.Initialize(cfg.Logging.Level); err != nil {
			log.Printf("Ignoring invalid logging.level: %v", err)
		}
	}

	a := app.NewWithID(appID)
	deskApp, ok := a.(desktop.App)
	if !ok {
		log.Fatal("Fatal: system tray is not supported on this platform")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := &tray{
		app:  a,
		desk: deskApp,
		cfg:  cfg,
		ctrl: godesk.NewController(godesk.NewBluetoothCentral(), cfg.DeskAddress, godesk.DefaultOptions()),
		log:  logging.Named("tray"),
		ctx:  ctx,
	}
	t.ctrl.OnDeviceLearned(t.saveAddress)
	t.buildMenu()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		t.log.Info("Shutdown signal received", zap.Stringer("signal", sig))
		fyne.Do(a.Quit)
	}()

	a.Lifecycle().SetOnStarted(func() {
		go t.refreshHeight()
	})
	a.Lifecycle().SetOnStopped(func() {
		cancel()
		t.ctrl.Close()
	})

	a.Run()
}

func (t *tray) buildMenu() {
	t.heightItem = fyne.NewMenuItem("Height: unknown", nil)
	t.heightItem.Disabled = true

	items := []*fyne.MenuItem{t.heightItem, fyne.NewMenuItemSeparator()}
	for _, p := range config.AllPresets() {
		items = append(items, fyne.NewMenuItem(t.cfg.Presets.Label(p), func() {
			go t.moveToPreset(p)
		}))
	}
	items = append(items,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Stop", func() { go t.stop() }),
		fyne.NewMenuItem("Configure Desk...", func() { go t.configure() }),
	)

	// fyne appends its own Quit item to the tray menu.
	t.menu = fyne.NewMenu("Desk", items...)
	t.desk.SetSystemTrayMenu(t.menu)
	t.desk.SetSystemTrayIcon(theme.ComputerIcon())
}

func (t *tray) moveToPreset(p config.Preset) {
	if !t.busy.TryLock() {
		t.log.Info("Desk is busy, ignoring preset", zap.String("preset", p.Name()))
		return
	}
	defer t.busy.Unlock()

	t.setHeightLabel("Height: moving to " + t.cfg.Presets.Label(p))
	if err := t.ctrl.MoveToPreset(t.ctx, p.Name(), t.cfg.Presets.Get(p)); err != nil {
		t.notifyError("Could not move desk", err)
	}
	t.refreshHeight()
}

// stop does not take busy so it can interrupt a running move.
func (t *tray) stop() {
	if err := t.ctrl.Stop(t.ctx); err != nil {
		t.notifyError("Could not stop desk", err)
	}
}

func (t *tray) configure() {
	if !t.busy.TryLock() {
		return
	}
	defer t.busy.Unlock()

	t.setHeightLabel("Searching for desks...")
	ctx, cancel := context.WithTimeout(t.ctx, 2*time.Minute)
	defer cancel()

	address, err := t.ctrl.Pair(ctx)
	if err != nil {
		t.notifyError("Desk setup failed", err)
		t.refreshHeight()
		return
	}
	t.notify("Desk configured", "Connected to desk "+address)
	t.refreshHeight()
}

func (t *tray) saveAddress(address string) {
	t.cfg.DeskAddress = address
	if err := t.cfg.Save(); err != nil {
		t.log.Error("Failed to save desk address", zap.String("address", address), zap.Error(err))
		return
	}
	t.log.Info("Saved desk address", zap.String("address", address))
}

// hasDesk reports whether a desk is known. It asks the controller rather than cfg, which
// saveAddress writes from the connecting goroutine.
func (t *tray) hasDesk() bool {
	return t.ctrl.Address() != "" || t.ctrl.Connected()
}

func (t *tray) refreshHeight() {
	if !t.hasDesk() {
		t.setHeightLabel("No desk configured")
		return
	}
	h, err := t.ctrl.GetHeight(t.ctx)
	if err != nil {
		t.log.Warn("Height unavailable", zap.Error(err))
		t.setHeightLabel("Height: unavailable")
		return
	}
	t.setHeightLabel("Height: " + config.FormatCM(h))
}

func (t *tray) setHeightLabel(label string) {
	fyne.Do(func() {
		t.heightItem.Label = label
		t.menu.Refresh()
	})
}

func (t *tray) notify(title, content string) {
	fyne.Do(func() {
		t.app.SendNotification(fyne.NewNotification(title, content))
	})
}

func (t *tray) notifyError(title string, err error) {
	t.log.Error(title, zap.Error(err))
	t.notify(title, godesk.ShortMessage(err))
}
