package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"wisetrade/internal/domain/models"
	domrepo "wisetrade/internal/domain/repository"
)

// relational entities

type portfolioRow struct {
	ID        uint          `gorm:"primaryKey"`
	Name      string        `gorm:"size:128;not null"`
	Owner     string        `gorm:"size:128;index"`
	Positions []positionRow `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (portfolioRow) TableName() string { return "portfolios" }

type positionRow struct {
	ID          uint    `gorm:"primaryKey"`
	PortfolioID uint    `gorm:"index;not null"`
	Ticker      string  `gorm:"size:16;not null"`
	Quantity    float64 `gorm:"not null"`
	AvgPrice    float64 `gorm:"not null"`
}

func (positionRow) TableName() string { return "positions" }

type articleRow struct {
	ID          uint      `gorm:"primaryKey"`
	Ticker      string    `gorm:"size:16;index:idx_articles_ticker_published"`
	Title       string    `gorm:"size:512"`
	URL         string    `gorm:"size:1024;uniqueIndex:idx_articles_url_published,length:512"`
	Publisher   string    `gorm:"size:128"`
	PublishedAt time.Time `gorm:"index:idx_articles_ticker_published;uniqueIndex:idx_articles_url_published"`
	Source      string    `gorm:"size:32"`
}

func (articleRow) TableName() string { return "articles" }

type sentimentRow struct {
	ID      uint    `gorm:"primaryKey"`
	Ticker  string  `gorm:"size:16;uniqueIndex:idx_sentiment_ticker_day"`
	Day     string  `gorm:"size:10;uniqueIndex:idx_sentiment_ticker_day"`
	Summary string  `gorm:"size:1024"`
	Score   float64 `gorm:"not null"`
	AsOf    time.Time
}

func (sentimentRow) TableName() string { return "sentiments" }

// adviceRow keeps one live row per (portfolio, ticker); ad-hoc advice
// (portfolio_id = 0) stays append-only, hence the partial unique index.
type adviceRow struct {
	ID          uint      `gorm:"primaryKey"`
	PortfolioID uint      `gorm:"index;uniqueIndex:idx_advices_portfolio_ticker,where:portfolio_id > 0"`
	Ticker      string    `gorm:"size:16;index;uniqueIndex:idx_advices_portfolio_ticker"`
	Action      string    `gorm:"size:8;not null"`
	Confidence  float64   `gorm:"not null"`
	Rationale   string    `gorm:"size:2048"`
	Synthesizer string    `gorm:"size:16"`
	CreatedAt   time.Time `gorm:"index"`
}

func (adviceRow) TableName() string { return "advices" }

// GormStore implements the relational stores (portfolios, articles,
// sentiment, advice) on SQLite or Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the database and migrates the schema.
func NewGormStore(driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&portfolioRow{}, &positionRow{}, &articleRow{}, &sentimentRow{}, &adviceRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &GormStore{db: db}, nil
}

// DB exposes the underlying handle, used by tests.
func (s *GormStore) DB() *gorm.DB { return s.db }

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// --- ArticleStore ---

func (s *GormStore) Upsert(ctx context.Context, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}
	rows := make([]articleRow, 0, len(articles))
	for _, a := range articles {
		if a.URL == "" {
			continue
		}
		rows = append(rows, articleRow{
			Ticker:      a.Ticker,
			Title:       a.Title,
			URL:         a.URL,
			Publisher:   a.Publisher,
			PublishedAt: a.PublishedAt,
			Source:      a.Source,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	// same (url, published_at) is the same story, keep the first copy
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (s *GormStore) Recent(ctx context.Context, ticker string, since time.Time, limit int) ([]models.Article, error) {
	var rows []articleRow
	err := s.db.WithContext(ctx).
		Where("ticker = ? AND published_at >= ?", ticker, since).
		Order("published_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.Article, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Article{
			Ticker:      r.Ticker,
			Title:       r.Title,
			URL:         r.URL,
			Publisher:   r.Publisher,
			PublishedAt: r.PublishedAt,
			Source:      r.Source,
		})
	}
	return out, nil
}

// --- SentimentStore ---

func (s *GormStore) Get(ctx context.Context, ticker, day string) (*models.SentimentResult, error) {
	var row sentimentRow
	err := s.db.WithContext(ctx).
		Where("ticker = ? AND day = ?", ticker, day).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("sentiment for %s on %s: not found", ticker, day)
		}
		return nil, err
	}
	return &models.SentimentResult{
		Ticker:  row.Ticker,
		Day:     row.Day,
		Summary: row.Summary,
		Score:   row.Score,
		AsOf:    row.AsOf,
	}, nil
}

func (s *GormStore) Put(ctx context.Context, result *models.SentimentResult) error {
	row := sentimentRow{
		Ticker:  result.Ticker,
		Day:     result.Day,
		Summary: result.Summary,
		Score:   result.Score,
		AsOf:    result.AsOf,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticker"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{"summary", "score", "as_of"}),
		}).
		Create(&row).Error
}

// --- PortfolioStore ---

// gormPortfolioStore is a method-set view; Get and Save would otherwise
// collide with the sentiment and advice stores on the shared receiver.
type gormPortfolioStore struct {
	s *GormStore
}

// Portfolios returns the PortfolioStore view.
func (s *GormStore) Portfolios() domrepo.PortfolioStore {
	return &gormPortfolioStore{s: s}
}

func (v *gormPortfolioStore) Get(ctx context.Context, id uint) (*models.Portfolio, error) {
	return v.s.GetPortfolio(ctx, id)
}

func (v *gormPortfolioStore) List(ctx context.Context, owner string) ([]models.Portfolio, error) {
	return v.s.List(ctx, owner)
}

func (v *gormPortfolioStore) Save(ctx context.Context, p *models.Portfolio) error {
	return v.s.SavePortfolio(ctx, p)
}

func (s *GormStore) GetPortfolio(ctx context.Context, id uint) (*models.Portfolio, error) {
	var row portfolioRow
	err := s.db.WithContext(ctx).Preload("Positions").First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("portfolio %d: not found", id)
		}
		return nil, err
	}
	return portfolioFromRow(&row), nil
}

func (s *GormStore) List(ctx context.Context, owner string) ([]models.Portfolio, error) {
	var rows []portfolioRow
	q := s.db.WithContext(ctx).Preload("Positions")
	if owner != "" {
		q = q.Where("owner = ?", owner)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.Portfolio, 0, len(rows))
	for i := range rows {
		out = append(out, *portfolioFromRow(&rows[i]))
	}
	return out, nil
}

func (s *GormStore) SavePortfolio(ctx context.Context, p *models.Portfolio) error {
	row := portfolioRow{
		ID:    p.ID,
		Name:  p.Name,
		Owner: p.Owner,
	}
	for _, pos := range p.Positions {
		row.Positions = append(row.Positions, positionRow{
			Ticker:   pos.Ticker,
			Quantity: pos.Quantity,
			AvgPrice: pos.AvgPrice,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if row.ID != 0 {
			if err := tx.Where("portfolio_id = ?", row.ID).Delete(&positionRow{}).Error; err != nil {
				return err
			}
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		return err
	}
	p.ID = row.ID
	return nil
}

func portfolioFromRow(row *portfolioRow) *models.Portfolio {
	p := &models.Portfolio{
		ID:    row.ID,
		Name:  row.Name,
		Owner: row.Owner,
	}
	for _, pos := range row.Positions {
		p.Positions = append(p.Positions, models.Position{
			Ticker:   pos.Ticker,
			Quantity: pos.Quantity,
			AvgPrice: pos.AvgPrice,
		})
	}
	return p
}

// --- AdviceStore ---

type gormAdviceStore struct {
	s *GormStore
}

// Advices returns the AdviceStore view.
func (s *GormStore) Advices() domrepo.AdviceStore {
	return &gormAdviceStore{s: s}
}

func (v *gormAdviceStore) Save(ctx context.Context, advice *models.Advice) error {
	return v.s.SaveAdvice(ctx, advice)
}

func (v *gormAdviceStore) History(ctx context.Context, ticker string, limit int) ([]models.Advice, error) {
	return v.s.History(ctx, ticker, limit)
}

func (v *gormAdviceStore) ForPortfolio(ctx context.Context, portfolioID uint) ([]models.Advice, error) {
	return v.s.AdviceForPortfolio(ctx, portfolioID)
}

func (s *GormStore) SaveAdvice(ctx context.Context, advice *models.Advice) error {
	row := adviceRow{
		PortfolioID: advice.PortfolioID,
		Ticker:      advice.Ticker,
		Action:      string(advice.Action),
		Confidence:  advice.Confidence,
		Rationale:   advice.Rationale,
		Synthesizer: advice.Synthesizer,
		CreatedAt:   advice.CreatedAt,
	}

	q := s.db.WithContext(ctx)
	if advice.PortfolioID != 0 {
		q = q.Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "portfolio_id"}, {Name: "ticker"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "portfolio_id > 0"}}},
			DoUpdates:   clause.AssignmentColumns([]string{"action", "confidence", "rationale", "synthesizer", "created_at"}),
		})
	}
	return q.Create(&row).Error
}

func (s *GormStore) AdviceForPortfolio(ctx context.Context, portfolioID uint) ([]models.Advice, error) {
	var rows []adviceRow
	err := s.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("ticker ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return advicesFromRows(rows), nil
}

func (s *GormStore) History(ctx context.Context, ticker string, limit int) ([]models.Advice, error) {
	var rows []adviceRow
	err := s.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return advicesFromRows(rows), nil
}

func advicesFromRows(rows []adviceRow) []models.Advice {
	out := make([]models.Advice, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Advice{
			PortfolioID: r.PortfolioID,
			Ticker:      r.Ticker,
			Action:      models.Action(r.Action),
			Confidence:  r.Confidence,
			Rationale:   r.Rationale,
			Synthesizer: r.Synthesizer,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out
}
