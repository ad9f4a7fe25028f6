package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/sirupsen/logrus"
)

// KarmaVerdict - итог изменения кармы.
type KarmaVerdict uint8

const (
	KarmaAccept KarmaVerdict = iota
	KarmaKickOut
)

type karmaRecord struct {
	karma int8
	// releaseAt - конец блокировки клиента с отрицательной кармой.
	releaseAt time.Time
}

// KarmaService ведет карму клиентов. Карма привязана к адресу клиента, а не
// к сессии: переподключение ее не сбрасывает. Отключения посреди партии и
// короткие партии уменьшают карму, нормально доигранные партии увеличивают.
// Клиент с отрицательной кармой не допускается к игре, пока Review не
// снимет блокировку.
type KarmaService struct {
	cfg KarmaConfig
	s   *scheduler.Scheduler

	addresses map[uint64]string // сессия -> адрес клиента
	clients   map[string]*karmaRecord

	// KickedOut вызывается, когда карма клиента сессии стала отрицательной.
	KickedOut func(session uint64)

	log *logrus.Entry
}

func NewKarmaService(cfg KarmaConfig, s *scheduler.Scheduler) *KarmaService {
	return &KarmaService{
		cfg:       cfg,
		s:         s,
		addresses: make(map[uint64]string),
		clients:   make(map[string]*karmaRecord),
		log:       logger.Component("karma_service"),
	}
}

// Identify связывает сессию с адресом клиента.
func (ks *KarmaService) Identify(session uint64, address string) {
	ks.addresses[session] = address
}

// Forget забывает адрес сессии. Карма адреса сохраняется.
func (ks *KarmaService) Forget(session uint64) {
	delete(ks.addresses, session)
}

// address возвращает адрес сессии. Сессия без адреса - отдельный клиент.
func (ks *KarmaService) address(session uint64) string {
	if a, ok := ks.addresses[session]; ok {
		return a
	}
	return fmt.Sprintf("session:%d", session)
}

// Allowed проверяет, допускается ли клиент сессии к игре.
func (ks *KarmaService) Allowed(session uint64) bool {
	r, ok := ks.clients[ks.address(session)]
	return !ok || r.karma >= 0
}

// Karma возвращает текущую карму клиента сессии.
func (ks *KarmaService) Karma(session uint64) int8 {
	if r, ok := ks.clients[ks.address(session)]; ok {
		return r.karma
	}
	return clampKarma(ks.cfg.Initial)
}

func (ks *KarmaService) Disconnection(session uint64) KarmaVerdict {
	return ks.add(session, ks.cfg.Disconnection, "disconnection")
}

func (ks *KarmaService) ShortGame(session uint64) KarmaVerdict {
	return ks.add(session, ks.cfg.ShortGame, "short game")
}

func (ks *KarmaService) GoodBehavior(session uint64) KarmaVerdict {
	return ks.add(session, ks.cfg.GoodBehavior, "good behavior")
}

func (ks *KarmaService) add(session uint64, delta int, reason string) KarmaVerdict {
	if !ks.cfg.Enabled {
		return KarmaAccept
	}

	address := ks.address(session)
	r, ok := ks.clients[address]
	if !ok {
		r = &karmaRecord{karma: clampKarma(ks.cfg.Initial)}
		ks.clients[address] = r
	}
	r.karma = clampKarma(int(r.karma) + delta)

	log := ks.log.WithFields(logrus.Fields{
		"session": session,
		"client":  address,
		"karma":   r.karma,
		"reason":  reason,
	})
	if r.karma >= 0 {
		if delta < 0 {
			log.WithField("penalty", delta).Info("karma penalty")
		}
		return KarmaAccept
	}

	r.releaseAt = ks.s.Now().Add(ks.cfg.BlacklistDuration)
	log.WithField("until", r.releaseAt).Warn("client blacklisted")
	if ks.KickedOut != nil {
		ks.KickedOut(session)
	}
	return KarmaKickOut
}

// Review снимает истекшие блокировки. Клиент возвращается с начальной кармой.
func (ks *KarmaService) Review() {
	now := ks.s.Now()
	for address, r := range ks.clients {
		if r.karma < 0 && !r.releaseAt.After(now) {
			ks.log.WithField("client", address).Info("blacklisting lifted")
			delete(ks.clients, address)
		}
	}
}

// Blacklisted возвращает число заблокированных клиентов.
func (ks *KarmaService) Blacklisted() int {
	n := 0
	for _, r := range ks.clients {
		if r.karma < 0 {
			n++
		}
	}
	return n
}

func clampKarma(v int) int8 {
	return int8(max(math.MinInt8, min(v, math.MaxInt8)))
}
