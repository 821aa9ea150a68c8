package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/iudanet/gophsync/internal/client/api"
	"github.com/iudanet/gophsync/internal/client/data"
	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/client/storage/boltdb"
	"github.com/iudanet/gophsync/internal/client/storage/memory"
	syncengine "github.com/iudanet/gophsync/internal/client/sync"
	"github.com/iudanet/gophsync/internal/config"
	"github.com/iudanet/gophsync/internal/tracker"
	"github.com/iudanet/gophsync/internal/validator"
)

// ErrDeviceMismatch локальная база создана другим устройством
var ErrDeviceMismatch = errors.New("database belongs to another device")

// MemoryDBPath значение db_path для сессии без файла базы
const MemoryDBPath = ":memory:"

// Store локальное хранилище устройства
type Store interface {
	storage.RecordStorage
	storage.JournalStorage
	storage.MetadataStorage
	Close() error
}

// App клиент одного устройства поверх локальной базы
type App struct {
	Store   Store
	Tracker *tracker.Tracker
	Data    *data.Service
	Client  *api.Client
	cfg     *config.Config
	logger  *slog.Logger
}

// Open открывает локальную базу и восстанавливает трекер из журнала
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	app, err := build(ctx, store, cfg, logger)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	return app, nil
}

func openStore(ctx context.Context, dbPath string) (Store, error) {
	if dbPath == MemoryDBPath {
		return memory.New(), nil
	}

	store, err := boltdb.New(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func build(ctx context.Context, store Store, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deviceID, err := resolveDeviceID(ctx, store, cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	// Без user_id владельцем записей считается само устройство
	userID := cfg.UserID
	if userID == "" {
		userID = deviceID
	}

	tr, err := tracker.New(deviceID, userID, tracker.WithJournal(store))
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker: %w", err)
	}
	if err := tr.Restore(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore tracker: %w", err)
	}

	v := validator.New(validator.WithMaxClockSkew(cfg.Validator.MaxClockSkew))
	service := data.NewService(tr, store, logger, data.WithValidator(v))

	client := api.NewClient(cfg.ServerURL,
		api.WithLogger(logger),
		api.WithDeviceID(deviceID))

	logger.Debug("Client opened",
		"device_id", deviceID,
		"db_path", cfg.DBPath,
		"pending", len(tr.PendingChanges()))

	return &App{
		Store:   store,
		Tracker: tr,
		Data:    service,
		Client:  client,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Engine создает движок синхронизации поверх источника сети conn
func (a *App) Engine(conn syncengine.Connectivity) *syncengine.Engine {
	return syncengine.NewEngine(a.Tracker, a.Client, conn, a.logger,
		syncengine.WithRecords(a.Data),
		syncengine.WithCursorStorage(a.Store),
		syncengine.WithStrategy(a.cfg.Sync.Strategy),
		syncengine.WithRequestTimeout(a.cfg.Sync.RequestTimeout))
}

// Close закрывает локальную базу
func (a *App) Close() error {
	return a.Store.Close()
}

// resolveDeviceID выбирает id устройства: заданный в конфигурации, сохраненный
// в базе или новый UUID. При первом запуске выбранный id сохраняется.
func resolveDeviceID(ctx context.Context, meta storage.MetadataStorage, configured string) (string, error) {
	stored, err := meta.GetDeviceID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get device id: %w", err)
	}

	switch {
	case stored != "" && configured != "" && configured != stored:
		return "", fmt.Errorf("%w: configured %q, stored %q", ErrDeviceMismatch, configured, stored)
	case stored != "":
		return stored, nil
	}

	deviceID := configured
	if deviceID == "" {
		deviceID = uuid.NewString()
	}
	if err := meta.SaveDeviceID(ctx, deviceID); err != nil {
		return "", fmt.Errorf("failed to save device id: %w", err)
	}
	return deviceID, nil
}
