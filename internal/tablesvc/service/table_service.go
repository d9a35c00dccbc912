package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

const (
	defaultHostName  = "Host (You)"
	defaultGuestName = "Guest Ninja"
)

type Options struct {
	ActivityWindow time.Duration
	CodeAttempts   int
}

// TableService owns the table lifecycle: creation, membership, closing,
// deletion, score submission, hall of fame and identity migration.
// Every operation takes the acting principal explicitly.
type TableService struct {
	tables     TableStore
	players    PlayerStore
	hallOfFame HallOfFameStore
	visits     VisitStore
	media      MediaStore
	identity   Identity
	notifier   Notifier
	codes      *CodeAllocator
	now        func() time.Time
}

func NewTableService(stores Stores, media MediaStore, ident Identity, notifier Notifier, opts Options) *TableService {
	return &TableService{
		tables:     stores.Tables,
		players:    stores.Players,
		hallOfFame: stores.HallOfFame,
		visits:     stores.Visits,
		media:      media,
		identity:   ident,
		notifier:   notifier,
		codes:      NewCodeAllocator(stores.Tables, opts.ActivityWindow, opts.CodeAttempts),
		now:        time.Now,
	}
}

func (s *TableService) Codes() *CodeAllocator {
	return s.codes
}

type CreateTableRequest struct {
	Name       string `json:"name"`
	PlayerName string `json:"player_name"`
}

type JoinRequest struct {
	Code    string `json:"code"`
	TableID string `json:"table_id"`
	Name    string `json:"name"`
}

// CreateTable allocates a short code, persists the table and seats the host
// as an unscored player.
func (s *TableService) CreateTable(ctx context.Context, p models.Principal, req CreateTableRequest) (*models.Table, error) {
	if p.ID == "" {
		return nil, ErrNotReady
	}

	code, err := s.codes.Allocate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeExhausted, err)
	}

	table := &models.Table{
		ID:        uuid.NewString(),
		ShortCode: &code,
		Host:      p.ID,
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: s.now().UTC(),
		Status:    models.TableOpen,
	}
	if err := s.tables.CreateTable(ctx, table); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}

	host := &models.Player{
		TableID: table.ID,
		UID:     p.ID,
		Name:    firstNonEmpty(req.PlayerName, p.DisplayName, defaultHostName),
	}
	if err := s.players.PutPlayer(ctx, host); err != nil {
		if delErr := s.tables.DeleteTable(ctx, table.ID); delErr != nil {
			log.Warnf("[TableService.CreateTable] remove hostless table %s: %s", table.ID, delErr)
		}
		return nil, fmt.Errorf("seat host: %w", err)
	}

	s.recordVisit(ctx, p, table.ID)
	s.notify(ctx, table.ID)

	log.Infof("table %s created by %s with code %s", table.ID, p.ID, code)
	return table, nil
}

// JoinTable resolves the table by code or id and seats the principal. An
// existing player only has its name updated. The name check and the write
// are not atomic; two simultaneous claims of one name can both succeed.
func (s *TableService) JoinTable(ctx context.Context, p models.Principal, req JoinRequest) (*models.Table, error) {
	if p.ID == "" {
		return nil, ErrNotReady
	}

	table, err := s.resolveTable(ctx, req)
	if err != nil {
		return nil, err
	}

	players, err := s.players.ListPlayers(ctx, table.ID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	var self *models.Player
	for _, pl := range players {
		if pl.UID == p.ID {
			self = pl
			break
		}
	}

	name := strings.TrimSpace(req.Name)
	claimed := name
	if claimed == "" && self == nil {
		claimed = p.DisplayName
	}
	if claimed != "" {
		for _, pl := range players {
			if pl.UID != p.ID && pl.Name == claimed {
				return nil, ErrNameTaken
			}
		}
	}

	switch {
	case self == nil:
		player := &models.Player{
			TableID: table.ID,
			UID:     p.ID,
			Name:    firstNonEmpty(claimed, defaultGuestName),
		}
		if err := s.players.PutPlayer(ctx, player); err != nil {
			return nil, fmt.Errorf("seat player: %w", err)
		}
	case name != "" && name != self.Name:
		if err := s.players.RenamePlayer(ctx, table.ID, p.ID, name); err != nil {
			return nil, fmt.Errorf("rename player: %w", err)
		}
	}

	s.recordVisit(ctx, p, table.ID)
	s.notify(ctx, table.ID)
	return table, nil
}

func (s *TableService) resolveTable(ctx context.Context, req JoinRequest) (*models.Table, error) {
	if req.TableID != "" {
		table, err := s.tables.GetTable(ctx, req.TableID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrTableNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("get table: %w", err)
		}
		return table, nil
	}

	code := NormalizeCode(req.Code)
	if code == "" {
		return nil, ErrTableNotFound
	}

	candidates, err := s.tables.FindTablesByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup code: %w", err)
	}

	var newest *models.Table
	for _, t := range candidates {
		if !s.codes.Active(t.CreatedAt) {
			continue
		}
		if newest == nil || t.CreatedAt.After(newest.CreatedAt) {
			newest = t
		}
	}
	if newest == nil {
		return nil, ErrTableNotFound
	}
	return newest, nil
}

// Table returns a table and its players.
func (s *TableService) Table(ctx context.Context, tableID string) (*models.Table, []*models.Player, error) {
	table, err := s.tables.GetTable(ctx, tableID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, ErrTableNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get table: %w", err)
	}

	players, err := s.players.ListPlayers(ctx, tableID)
	if err != nil {
		return nil, nil, fmt.Errorf("list players: %w", err)
	}
	return table, players, nil
}

func (s *TableService) CloseTable(ctx context.Context, p models.Principal, tableID string) error {
	table, err := s.tables.GetTable(ctx, tableID)
	if errors.Is(err, models.ErrNotFound) {
		return ErrTableNotFound
	}
	if err != nil {
		return fmt.Errorf("get table: %w", err)
	}
	if table.Host != p.ID {
		return ErrUnauthorized
	}
	if table.IsClosed() {
		return nil
	}

	if err := s.tables.SetStatus(ctx, tableID, models.TableClosed); err != nil {
		return fmt.Errorf("close table: %w", err)
	}
	s.notify(ctx, tableID)
	return nil
}

// DeleteTable cascades hall of fame entries, player media, players and
// finally the table itself. A missing table counts as already deleted, so
// a partially applied delete can be retried.
func (s *TableService) DeleteTable(ctx context.Context, p models.Principal, tableID string) error {
	table, err := s.tables.GetTable(ctx, tableID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get table: %w", err)
	}
	if table.Host != p.ID {
		return ErrUnauthorized
	}

	if _, err := s.hallOfFame.DeleteEntriesByTable(ctx, tableID); err != nil {
		return fmt.Errorf("delete hall of fame entries: %w", err)
	}

	players, err := s.players.ListPlayers(ctx, tableID)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	for _, pl := range players {
		s.deleteMedia(ctx, tableID, pl.UID)
		if err := s.players.DeletePlayer(ctx, tableID, pl.UID); err != nil && !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("delete player %s: %w", pl.UID, err)
		}
	}

	if err := s.tables.DeleteTable(ctx, tableID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("delete table: %w", err)
	}

	s.notify(ctx, tableID)
	log.Infof("table %s deleted by %s (%d players)", tableID, p.ID, len(players))
	return nil
}

// DeletePlayer removes a plate. Only the player or the table host may do it.
// Other records with the same submission timestamp and score are residues of
// an interrupted identity migration and are removed as well, except the
// record the deleted plate was migrated into.
func (s *TableService) DeletePlayer(ctx context.Context, requester models.Principal, tableID, targetUID string) error {
	table, err := s.tables.GetTable(ctx, tableID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get table: %w", err)
	}
	if requester.ID != targetUID && requester.ID != table.Host {
		return ErrUnauthorized
	}

	target, err := s.players.GetPlayer(ctx, tableID, targetUID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get player: %w", err)
	}

	if _, err := s.hallOfFame.DeleteEntriesByOrigin(ctx, tableID, targetUID); err != nil {
		log.Warnf("[TableService.DeletePlayer] hall of fame cleanup for %s/%s: %s", tableID, targetUID, err)
	}

	if err := s.players.DeletePlayer(ctx, tableID, targetUID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("delete player: %w", err)
	}

	var ghosts, successors []*models.Player
	for _, pl := range s.duplicates(ctx, target) {
		if pl.MigratedFrom == target.UID {
			successors = append(successors, pl)
			continue
		}
		ghosts = append(ghosts, pl)
	}

	if !photoInUse(target.PhotoURL, successors) {
		s.deleteMedia(ctx, tableID, targetUID)
	}
	s.removeGhosts(ctx, ghosts, successors)
	s.notify(ctx, tableID)
	return nil
}

// duplicates lists the other players of the table carrying the same
// submission as p.
func (s *TableService) duplicates(ctx context.Context, p *models.Player) []*models.Player {
	if p.SubmittedAt == nil {
		return nil
	}

	players, err := s.players.ListPlayers(ctx, p.TableID)
	if err != nil {
		log.Warnf("[TableService.duplicates] list players of %s: %s", p.TableID, err)
		return nil
	}

	var out []*models.Player
	for _, pl := range players {
		if pl.UID != p.UID && sameSubmission(pl, p) {
			out = append(out, pl)
		}
	}
	return out
}

func (s *TableService) removeGhosts(ctx context.Context, ghosts, keep []*models.Player) {
	for _, g := range ghosts {
		if _, err := s.hallOfFame.DeleteEntriesByOrigin(ctx, g.TableID, g.UID); err != nil {
			log.Warnf("[TableService.removeGhosts] hall of fame cleanup for %s/%s: %s", g.TableID, g.UID, err)
		}
		if err := s.players.DeletePlayer(ctx, g.TableID, g.UID); err != nil && !errors.Is(err, models.ErrNotFound) {
			log.Warnf("[TableService.removeGhosts] delete ghost %s/%s: %s", g.TableID, g.UID, err)
			continue
		}
		if !photoInUse(g.PhotoURL, keep) {
			s.deleteMedia(ctx, g.TableID, g.UID)
		}
		log.Infof("removed ghost player %s from table %s", g.UID, g.TableID)
	}
}

func photoInUse(url string, players []*models.Player) bool {
	if url == "" {
		return false
	}
	for _, pl := range players {
		if pl.PhotoURL == url {
			return true
		}
	}
	return false
}

type ScoreSubmission struct {
	Breakdown   models.Breakdown
	Badges      []string
	Photo       []byte
	ContentType string
}

// SubmitScore validates the rating, uploads the photo and commits both into
// the caller's player record.
func (s *TableService) SubmitScore(ctx context.Context, p models.Principal, tableID string, sub ScoreSubmission) (*models.Player, error) {
	if p.ID == "" {
		return nil, ErrNotReady
	}
	if err := ValidateBreakdown(sub.Breakdown); err != nil {
		return nil, err
	}
	badges, err := NormalizeBadges(sub.Badges)
	if err != nil {
		return nil, err
	}
	if len(sub.Photo) == 0 {
		return nil, ErrPhotoRequired
	}

	table, err := s.tables.GetTable(ctx, tableID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}
	if table.IsClosed() {
		return nil, ErrTableClosed
	}

	current, err := s.players.GetPlayer(ctx, tableID, p.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: join the table before submitting", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}

	contentType := sub.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	handle, err := s.media.Put(ctx, mediaKey(tableID, p.ID), sub.Photo, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaUploadFailed, err)
	}

	now := s.now().UTC()
	breakdown := sub.Breakdown
	player := current.Clone()
	player.Score = FinalScore(breakdown)
	player.PhotoURL = s.media.PublicURL(handle)
	player.Breakdown = &breakdown
	player.Badges = badges
	player.SubmittedAt = &now
	player.InHallOfFame = false
	player.MigratedFrom = ""

	if err := s.players.PutPlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("save score: %w", err)
	}

	s.notify(ctx, tableID)
	return player, nil
}

// MyTables lists tables hosted by the principal plus, for persistent
// principals, the tables they joined. Newest first.
func (s *TableService) MyTables(ctx context.Context, p models.Principal) ([]*models.Table, error) {
	if p.ID == "" {
		return nil, ErrNotReady
	}

	hosted, err := s.tables.ListTablesByHost(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list hosted tables: %w", err)
	}

	seen := make(map[string]struct{}, len(hosted))
	out := make([]*models.Table, 0, len(hosted))
	for _, t := range hosted {
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}

	if !p.IsAnonymous {
		visits, err := s.visits.ListVisits(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list visits: %w", err)
		}
		for _, v := range visits {
			if _, ok := seen[v.TableID]; ok {
				continue
			}
			t, err := s.tables.GetTable(ctx, v.TableID)
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("get visited table: %w", err)
			}
			seen[t.ID] = struct{}{}
			out = append(out, t)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ShareLink builds the deep link that joins a table by id.
func ShareLink(baseURL, tableID string) string {
	return strings.TrimRight(baseURL, "/") + "/play?join=" + url.QueryEscape(tableID)
}

func (s *TableService) recordVisit(ctx context.Context, p models.Principal, tableID string) {
	if p.IsAnonymous {
		return
	}
	v := &models.VisitedTable{UserID: p.ID, TableID: tableID, JoinedAt: s.now().UTC()}
	if err := s.visits.RecordVisit(ctx, v); err != nil {
		log.Warnf("[TableService.recordVisit] %s -> %s: %s", p.ID, tableID, err)
	}
}

func (s *TableService) deleteMedia(ctx context.Context, tableID, uid string) {
	if err := s.media.Delete(ctx, mediaKey(tableID, uid)); err != nil {
		log.Warnf("[TableService.deleteMedia] %s: %s", mediaKey(tableID, uid), err)
	}
}

func (s *TableService) notify(ctx context.Context, tableID string) {
	if s.notifier != nil {
		s.notifier.Changed(ctx, tableID)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
