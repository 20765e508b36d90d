package layout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mpapenbr/trainrace/log"
	"github.com/mpapenbr/trainrace/pkg/model"
)

var ErrLayoutNotFound = errors.New("layout not found")

type layoutRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:127;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Waypoints []waypointRecord `gorm:"foreignKey:LayoutID"`
}

func (layoutRecord) TableName() string { return "layouts" }

type waypointRecord struct {
	ID       uint   `gorm:"primaryKey"`
	LayoutID uint   `gorm:"index"`
	Train    string `gorm:"size:16"`
	Kind     string `gorm:"size:16"`
	Seq      int
	Position float64
}

func (waypointRecord) TableName() string { return "layout_waypoints" }

// Store persists layouts in a SQLite database.
type Store struct {
	db *gorm.DB
	l  *log.Logger
}

type Option func(s *Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		s.l = l
	}
}

// Open opens (or creates) the layout database at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open layout db %s: %w", path, err)
	}
	return NewStore(db, opts...)
}

// NewStore uses an existing connection and migrates the layout tables.
func NewStore(db *gorm.DB, opts ...Option) (*Store, error) {
	ret := &Store{db: db, l: log.Default().Named("layout")}
	for _, opt := range opts {
		opt(ret)
	}
	if err := db.AutoMigrate(&layoutRecord{}, &waypointRecord{}); err != nil {
		return nil, fmt.Errorf("migrate layout tables: %w", err)
	}
	return ret, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save stores the layout, replacing an existing layout of the same name.
func (s *Store) Save(ctx context.Context, l Layout) error {
	if l.Name == "" {
		return errors.New("layout name must not be empty")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec layoutRecord
		err := tx.Where("name = ?", l.Name).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = layoutRecord{Name: l.Name}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Where("layout_id = ?", rec.ID).
				Delete(&waypointRecord{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&rec).Update("updated_at", time.Now()).Error; err != nil {
				return err
			}
		}
		wps := toRecords(rec.ID, l)
		if len(wps) == 0 {
			return nil
		}
		if err := tx.Create(&wps).Error; err != nil {
			return err
		}
		s.l.Debug("layout saved", log.String("name", l.Name), log.Int("waypoints", len(wps)))
		return nil
	})
}

func (s *Store) Load(ctx context.Context, name string) (Layout, error) {
	var rec layoutRecord
	err := s.db.WithContext(ctx).
		Preload("Waypoints", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Where("name = ?", name).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Layout{}, fmt.Errorf("%s: %w", name, ErrLayoutNotFound)
	}
	if err != nil {
		return Layout{}, err
	}
	return fromRecord(&rec), nil
}

// List returns all layouts ordered by name.
func (s *Store) List(ctx context.Context) ([]Layout, error) {
	var recs []layoutRecord
	if err := s.db.WithContext(ctx).
		Preload("Waypoints", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Order("name").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return lo.Map(recs, func(r layoutRecord, _ int) Layout { return fromRecord(&r) }), nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec layoutRecord
		err := tx.Where("name = ?", name).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s: %w", name, ErrLayoutNotFound)
		}
		if err != nil {
			return err
		}
		if err := tx.Where("layout_id = ?", rec.ID).
			Delete(&waypointRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&rec).Error
	})
}

func toRecords(layoutID uint, l Layout) []waypointRecord {
	ret := make([]waypointRecord, 0)
	for _, id := range model.Trains {
		tl, ok := l.Trains[id]
		if !ok {
			continue
		}
		add := func(kind model.WaypointKind, positions []float64) {
			for _, p := range positions {
				ret = append(ret, waypointRecord{
					LayoutID: layoutID,
					Train:    string(id),
					Kind:     kind.String(),
					Seq:      len(ret),
					Position: p,
				})
			}
		}
		add(model.KindStop, tl.Stations)
		add(model.KindSpeedZone, tl.Crossings)
	}
	return ret
}

func fromRecord(rec *layoutRecord) Layout {
	ret := Layout{
		Name:      rec.Name,
		UpdatedAt: rec.UpdatedAt,
		Trains:    make(map[model.TrainID]TrainLayout),
	}
	byTrain := lo.GroupBy(rec.Waypoints, func(w waypointRecord) string { return w.Train })
	for _, id := range model.Trains {
		wps := byTrain[string(id)]
		pick := func(kind model.WaypointKind) []float64 {
			return lo.FilterMap(wps, func(w waypointRecord, _ int) (float64, bool) {
				return w.Position, w.Kind == kind.String()
			})
		}
		ret.Trains[id] = newTrainLayout(pick(model.KindStop), pick(model.KindSpeedZone))
	}
	return ret
}
