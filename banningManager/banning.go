package banningManager

import (
	"context"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mining-pool/pow-ledger/config"
)

var log = logging.Logger("banning")

// Submissions counts accepted and rejected transactions of one client.
type Submissions struct {
	Valid   uint64
	Invalid uint64
}

func (s *Submissions) Total() uint64 {
	return s.Valid + s.Invalid
}

func (s *Submissions) BadPercent() float64 {
	return float64(s.Invalid*100) / float64(s.Total())
}

func (s *Submissions) Reset() {
	s.Valid = 0
	s.Invalid = 0
}

// BanningManager bans client addresses whose rejected share of submitted
// transactions reaches the configured percentage.
type BanningManager struct {
	Options *config.BanningOptions

	mu           sync.Mutex
	bannedIPList map[string]time.Time
	submissions  map[string]*Submissions
	now          func() time.Time
}

func NewBanningManager(options *config.BanningOptions) *BanningManager {
	return &BanningManager{
		Options:      options,
		bannedIPList: make(map[string]time.Time),
		submissions:  make(map[string]*Submissions),
		now:          time.Now,
	}
}

// Init purges expired bans until ctx is done.
func (bm *BanningManager) Init(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Duration(bm.Options.PurgeInterval) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bm.Purge()
			}
		}
	}()
}

func (bm *BanningManager) Purge() {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	for ip, banTime := range bm.bannedIPList {
		if bm.now().Sub(banTime) > bm.banDuration() {
			delete(bm.bannedIPList, ip)
		}
	}
}

func (bm *BanningManager) banDuration() time.Duration {
	return time.Duration(bm.Options.Time) * time.Second
}

// CheckBan reports whether the address is still banned, forgiving it once
// the ban has expired.
func (bm *BanningManager) CheckBan(strRemoteAddr string) bool {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	bannedTime, ok := bm.bannedIPList[strRemoteAddr]
	if !ok {
		return false
	}

	if bm.banDuration()-bm.now().Sub(bannedTime) > 0 {
		return true
	}

	delete(bm.bannedIPList, strRemoteAddr)
	log.Info("forgave banned IP ", strRemoteAddr)
	return false
}

func (bm *BanningManager) AddBannedIP(strRemoteAddr string) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.bannedIPList[strRemoteAddr] = bm.now()
}

// ShouldBan records one submission and bans the address when the checked
// window holds too many rejections. A window under the limit starts over.
func (bm *BanningManager) ShouldBan(strRemoteAddr string, valid bool) bool {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	s, ok := bm.submissions[strRemoteAddr]
	if !ok {
		s = &Submissions{}
		bm.submissions[strRemoteAddr] = s
	}

	if valid {
		s.Valid++
		return false
	}

	s.Invalid++
	if s.Total() < bm.Options.CheckThreshold {
		return false
	}

	if s.BadPercent() < bm.Options.InvalidPercent {
		s.Reset()
		return false
	}

	log.Warnf("%d out of the last %d transactions from %s were invalid, banning", s.Invalid, s.Total(), strRemoteAddr)
	delete(bm.submissions, strRemoteAddr)
	bm.bannedIPList[strRemoteAddr] = bm.now()
	return true
}
