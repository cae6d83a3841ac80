package services

import (
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"sync"
	"time"

	"bart-backend/internal/config"
	"bart-backend/internal/engine"
	"bart-backend/internal/models"
	"bart-backend/internal/recorder"
)

// SessionService drives a participant through the task flow
// (intro -> practice -> main -> complete), delegating all trial semantics to
// the engine, live state to Redis and durable output to the recorder.
type SessionService struct {
	redis  *RedisService
	engine *engine.Engine
	rec    recorder.Recorder
	cfg    *config.Config

	balloons    map[string]models.BalloonType
	broadcaster Broadcaster

	mu   sync.Mutex
	live map[string]*liveSession
}

// liveSession is the in-memory view of a session with an input clock for the
// idle-deflation sweep. Sessions are rehydrated from Redis after a restart.
type liveSession struct {
	session     *models.TaskSession
	practiceRng *rand.Rand
	lastInput   time.Time
}

func NewSessionService(redisService *RedisService, eng *engine.Engine, rec recorder.Recorder, cfg *config.Config) *SessionService {
	balloons := make(map[string]models.BalloonType, len(cfg.Task.Balloons))
	for _, bt := range cfg.Task.Balloons {
		balloons[bt.Name] = bt
	}

	return &SessionService{
		redis:    redisService,
		engine:   eng,
		rec:      rec,
		cfg:      cfg,
		balloons: balloons,
		live:     make(map[string]*liveSession),
	}
}

// SetBroadcaster wires the live-update sink; safe to leave unset in tests.
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Register creates a session for a participant: the balloon schedule is built
// and shuffled, the seed commitment is published, and the session starts on
// the intro page.
func (s *SessionService) Register(req *models.RegisterRequest) (*models.TaskSession, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}

	existing, err := s.redis.GetSessionByParticipant(req.ParticipantID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Phase != models.PhaseComplete {
		return nil, fmt.Errorf("participant %s already has an active session", req.ParticipantID)
	}

	now := time.Now()
	session := &models.TaskSession{
		ID:            models.GenerateSessionID(),
		ParticipantID: req.ParticipantID,
		Age:           req.Age,
		Gender:        req.Gender,
		Date:          models.Timestamp(now),
		Phase:         models.PhaseIntro,
		Schedule:      engine.BuildSchedule(s.cfg.Task.Balloons, s.cfg.Task.Repetitions, s.cfg.Task.SequenceSeed),
		SeedHash:      s.engine.SeedHash(),
		CreatedAt:     now.Unix(),
	}

	if err := s.redis.SaveSession(session); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.live[session.ID] = &liveSession{
		session:     session,
		practiceRng: s.practiceRngFor(session),
		lastInput:   now,
	}
	s.mu.Unlock()

	log.Printf("[INFO] session %s registered for participant %s (%d trials scheduled)",
		session.ID, session.ParticipantID, len(session.Schedule))
	return session, nil
}

// practiceRngFor seeds the practice hazard stream from the task seed and the
// participant id, so practice runs are as replayable as the main run.
func (s *SessionService) practiceRngFor(session *models.TaskSession) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(s.engine.TaskSeed()))
	h.Write([]byte(":"))
	h.Write([]byte(session.ParticipantID))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func (s *SessionService) getLive(sessionID string) (*liveSession, error) {
	if ls, ok := s.live[sessionID]; ok {
		return ls, nil
	}

	session, err := s.redis.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	ls := &liveSession{
		session:     session,
		practiceRng: s.practiceRngFor(session),
		lastInput:   time.Now(),
	}
	s.live[sessionID] = ls
	return ls, nil
}

func (s *SessionService) balloonFor(name string) (models.BalloonType, error) {
	bt, ok := s.balloons[name]
	if !ok {
		return models.BalloonType{}, fmt.Errorf("unknown balloon type: %s", name)
	}
	return bt, nil
}

// StartPractice moves a session off the intro page and inflates the first
// practice balloon. Practice presents each balloon type once, in config
// order.
func (s *SessionService) StartPractice(sessionID string) (models.HUDState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, err := s.getLive(sessionID)
	if err != nil {
		return models.HUDState{}, err
	}
	if ls.session.Phase != models.PhaseIntro {
		return models.HUDState{}, fmt.Errorf("cannot start practice from phase %s", ls.session.Phase)
	}

	ls.session.Phase = models.PhasePractice
	ls.session.PracticeIndex = 1
	ls.session.Active = s.engine.StartPracticeTrial(s.cfg.Task.Balloons[0], 1)
	ls.lastInput = time.Now()

	if err := s.redis.SaveSession(ls.session); err != nil {
		return models.HUDState{}, err
	}

	hud := s.hudState(ls.session)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastPhase(sessionID, models.PhasePractice)
		s.broadcaster.BroadcastHUD(sessionID, hud)
	}
	return hud, nil
}

// BeginMain starts the main run after practice has finished.
func (s *SessionService) BeginMain(sessionID string) (models.HUDState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, err := s.getLive(sessionID)
	if err != nil {
		return models.HUDState{}, err
	}
	if ls.session.Phase != models.PhasePractice {
		return models.HUDState{}, fmt.Errorf("cannot begin main run from phase %s", ls.session.Phase)
	}
	if ls.session.Active != nil {
		return models.HUDState{}, fmt.Errorf("practice trial still in progress")
	}

	bt, err := s.balloonFor(ls.session.Schedule[0])
	if err != nil {
		return models.HUDState{}, err
	}

	ls.session.Phase = models.PhaseMain
	ls.session.TrialIndex = 1
	ls.session.Active = s.engine.StartTrial(bt, ls.session.ParticipantID, 1)
	ls.lastInput = time.Now()

	if err := s.redis.SaveSession(ls.session); err != nil {
		return models.HUDState{}, err
	}

	hud := s.hudState(ls.session)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastPhase(sessionID, models.PhaseMain)
		s.broadcaster.BroadcastHUD(sessionID, hud)
	}
	return hud, nil
}

// Pump inflates the active balloon by one step.
func (s *SessionService) Pump(sessionID string) (*models.PumpResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, err := s.getLive(sessionID)
	if err != nil {
		return nil, err
	}
	trial := ls.session.Active
	if trial == nil {
		return nil, fmt.Errorf("no active trial")
	}
	ls.lastInput = time.Now()

	if trial.Practice {
		err = s.engine.PumpHazard(trial, ls.practiceRng.Float64())
	} else {
		err = s.engine.Pump(trial)
	}
	if err != nil {
		return nil, err
	}

	s.logEvent(ls.session, trial, models.EventPump)

	popped := trial.Status == models.TrialPopped
	resp := &models.PumpResponse{
		Popped:   popped,
		Pumps:    trial.Pumps,
		TempBank: trial.Earned,
		Radius:   trial.Radius,
	}

	if popped {
		s.logEvent(ls.session, trial, models.EventPop)
		if s.broadcaster != nil {
			s.broadcaster.BroadcastPop(sessionID, trial.Index, trial.Pumps)
		}
		if err := s.resolveTrial(ls, trial); err != nil {
			return nil, err
		}
	} else if err := s.redis.SaveSession(ls.session); err != nil {
		return nil, err
	}

	resp.HUD = s.hudState(ls.session)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastHUD(sessionID, resp.HUD)
	}
	return resp, nil
}

// CashOut banks the active balloon's temp earnings.
func (s *SessionService) CashOut(sessionID string) (*models.CashOutResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, err := s.getLive(sessionID)
	if err != nil {
		return nil, err
	}
	trial := ls.session.Active
	if trial == nil {
		return nil, fmt.Errorf("no active trial")
	}
	ls.lastInput = time.Now()

	if err := s.engine.CashOut(trial); err != nil {
		return nil, err
	}

	earned := trial.Earned
	s.logEvent(ls.session, trial, models.EventCashOut)

	if err := s.resolveTrial(ls, trial); err != nil {
		return nil, err
	}

	resp := &models.CashOutResponse{
		EarnedThis: earned,
		Banked:     ls.session.Banked,
		HUD:        s.hudState(ls.session),
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastBank(sessionID, earned, ls.session.Banked)
		s.broadcaster.BroadcastHUD(sessionID, resp.HUD)
	}
	return resp, nil
}

// resolveTrial handles everything that follows a terminal transition: banking,
// audit rows, block boundaries and advancing to the next balloon. Caller
// holds the service mutex.
func (s *SessionService) resolveTrial(ls *liveSession, trial *models.Trial) error {
	session := ls.session

	if trial.Practice {
		if trial.Status == models.TrialCashedOut {
			session.PracticeBanked += trial.Earned
		}
		return s.advancePractice(ls)
	}

	if trial.Status == models.TrialCashedOut {
		session.Banked += trial.Earned
	}

	if err := s.redis.AppendTrial(session.ID, trial); err != nil {
		return err
	}

	if err := s.rec.RecordTrial(&recorder.TrialRow{
		ParticipantID:    session.ParticipantID,
		TrialNumber:      trial.Index,
		Color:            trial.Balloon.Name,
		MaxPumps:         trial.Balloon.MaxPumps,
		PumpsMade:        trial.Pumps,
		Exploded:         trial.Status == models.TrialPopped,
		EarnedThis:       trial.Earned,
		BankedTotalAfter: session.Banked,
		PotentialThis:    trial.Potential,
		MissedThis:       trial.Missed(),
		Timestamp:        models.Timestamp(time.Now()),
	}); err != nil {
		log.Printf("[WARN] failed to record trial %d for %s: %v",
			trial.Index, session.ParticipantID, err)
	}

	if trial.Index%s.cfg.Task.BlockSize == 0 {
		if err := s.recordBlock(session, trial.Index); err != nil {
			log.Printf("[WARN] failed to record block at trial %d: %v", trial.Index, err)
		}
	}

	if trial.Index >= session.MainTrialCount() {
		return s.completeSession(ls)
	}

	next := trial.Index + 1
	bt, err := s.balloonFor(session.Schedule[next-1])
	if err != nil {
		return err
	}
	session.TrialIndex = next
	session.Active = s.engine.StartTrial(bt, session.ParticipantID, next)

	return s.redis.SaveSession(session)
}

func (s *SessionService) advancePractice(ls *liveSession) error {
	session := ls.session
	if session.PracticeIndex < len(s.cfg.Task.Balloons) {
		session.PracticeIndex++
		session.Active = s.engine.StartPracticeTrial(
			s.cfg.Task.Balloons[session.PracticeIndex-1], session.PracticeIndex)
	} else {
		// Practice done; hold until the participant starts the main run.
		session.Active = nil
	}
	return s.redis.SaveSession(session)
}

// recordBlock summarizes the block that just closed and writes its row.
func (s *SessionService) recordBlock(session *models.TaskSession, endIndex int) error {
	startIndex := endIndex - s.cfg.Task.BlockSize + 1

	trials, err := s.redis.GetTrials(session.ID)
	if err != nil {
		return err
	}

	block := models.Block{
		ParticipantID: session.ParticipantID,
		Scope:         fmt.Sprintf("block_%d_%d", startIndex, endIndex),
	}
	for _, t := range trials {
		if t.Index >= startIndex && t.Index <= endIndex {
			block.Trials = append(block.Trials, t)
		}
	}
	summary := engine.Summarize(block.Trials)

	return s.rec.RecordBlock(&recorder.BlockRow{
		ParticipantID:        block.ParticipantID,
		Scope:                block.Scope,
		TotalBalloons:        summary.TotalBalloons,
		Unexploded:           summary.Unexploded,
		Exploded:             summary.Exploded,
		TotalPumpsUnexploded: summary.TotalPumpsUnexploded,
		Earned:               summary.Earned,
		Potential:            summary.Potential,
		Missed:               summary.Missed,
	})
}

// completeSession writes the final aggregate and subject rows and retires the
// session from the live map.
func (s *SessionService) completeSession(ls *liveSession) error {
	session := ls.session
	session.Phase = models.PhaseComplete
	session.Active = nil
	session.EndedAt = time.Now().Unix()

	trials, err := s.redis.GetTrials(session.ID)
	if err != nil {
		return err
	}
	overall := engine.Summarize(trials)

	if err := s.rec.RecordBlock(&recorder.BlockRow{
		ParticipantID:        session.ParticipantID,
		Scope:                fmt.Sprintf("final_%d", session.MainTrialCount()),
		TotalBalloons:        overall.TotalBalloons,
		Unexploded:           overall.Unexploded,
		Exploded:             overall.Exploded,
		TotalPumpsUnexploded: overall.TotalPumpsUnexploded,
		Earned:               overall.Earned,
		Potential:            overall.Potential,
		Missed:               overall.Missed,
	}); err != nil {
		log.Printf("[WARN] failed to record final block for %s: %v", session.ParticipantID, err)
	}

	subject := models.SubjectRecord{
		ParticipantID: session.ParticipantID,
		Age:           session.Age,
		Gender:        session.Gender,
		Date:          session.Date,
		TotalBanked:   session.Banked,
	}
	if err := s.rec.RecordSubject(&recorder.SubjectRow{
		ParticipantID: subject.ParticipantID,
		Age:           subject.Age,
		Gender:        subject.Gender,
		Date:          subject.Date,
		TotalBanked:   subject.TotalBanked,
	}); err != nil {
		log.Printf("[WARN] failed to record subject %s: %v", subject.ParticipantID, err)
	}

	delete(s.live, session.ID)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastPhase(session.ID, models.PhaseComplete)
	}

	log.Printf("[INFO] session %s complete: banked %.2f over %d balloons",
		session.ID, session.Banked, overall.TotalBalloons)
	return s.redis.SaveSession(session)
}

// SweepIdle deflates balloons whose participants have gone quiet: temp
// earnings are lost and the run moves on, exactly like the original task's
// absence timeout.
func (s *SessionService) SweepIdle(maxIdle time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ls := range s.live {
		trial := ls.session.Active
		if trial == nil || time.Since(ls.lastInput) < maxIdle {
			continue
		}

		if err := s.engine.Deflate(trial); err != nil {
			continue
		}
		log.Printf("[INFO] session %s: trial %d deflated after %s idle", id, trial.Index, maxIdle)
		s.logEvent(ls.session, trial, models.EventDeflate)

		if err := s.resolveTrial(ls, trial); err != nil {
			log.Printf("[WARN] failed to resolve deflated trial in %s: %v", id, err)
		}
		if s.broadcaster != nil {
			s.broadcaster.BroadcastHUD(id, s.hudState(ls.session))
		}
	}
}

// State returns the current HUD snapshot.
func (s *SessionService) State(sessionID string) (models.HUDState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, err := s.getLive(sessionID)
	if err != nil {
		return models.HUDState{}, err
	}
	return s.hudState(ls.session), nil
}

// BlockReport pairs a scope label with its aggregation.
type BlockReport struct {
	Scope   string              `json:"scope"`
	Summary models.BlockSummary `json:"summary"`
}

// Summary recomputes all closed block summaries plus the running overall
// aggregate from the session's resolved trials.
func (s *SessionService) Summary(sessionID string) ([]BlockReport, models.BlockSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, err := s.getLive(sessionID)
	if err != nil {
		return nil, models.BlockSummary{}, err
	}

	trials, err := s.redis.GetTrials(sessionID)
	if err != nil {
		return nil, models.BlockSummary{}, err
	}

	size := s.cfg.Task.BlockSize
	var reports []BlockReport
	for start := 1; start+size-1 <= ls.session.TrialIndex; start += size {
		end := start + size - 1
		var blockTrials []*models.Trial
		closed := false
		for _, t := range trials {
			if t.Index >= start && t.Index <= end {
				blockTrials = append(blockTrials, t)
				if t.Index == end {
					closed = true
				}
			}
		}
		if !closed {
			break
		}
		reports = append(reports, BlockReport{
			Scope:   fmt.Sprintf("block_%d_%d", start, end),
			Summary: engine.Summarize(blockTrials),
		})
	}

	return reports, engine.Summarize(trials), nil
}

// Verification returns the seed commitment; the raw seed is disclosed only
// once the session is complete, so thresholds stay hidden during play.
func (s *SessionService) Verification(sessionID string) (*models.VerificationData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, err := s.getLive(sessionID)
	if err != nil {
		return nil, err
	}

	data := &models.VerificationData{
		SeedHash:   ls.session.SeedHash,
		TrialCount: ls.session.MainTrialCount(),
	}
	if ls.session.Phase == models.PhaseComplete {
		data.TaskSeed = s.engine.TaskSeed()
	}
	return data, nil
}

func (s *SessionService) logEvent(session *models.TaskSession, trial *models.Trial, typ models.TaskEventType) {
	evt := &models.TaskEvent{
		ID:            models.GenerateEventID(),
		ParticipantID: session.ParticipantID,
		TrialIndex:    trial.Index,
		Type:          typ,
		Pumps:         trial.Pumps,
		TempBank:      trial.Earned,
		BankedAfter:   session.Banked,
		CreatedAt:     time.Now().Unix(),
	}
	if err := s.redis.AppendEvent(session.ID, evt); err != nil {
		log.Printf("[WARN] failed to append %s event: %v", typ, err)
	}
}

// hudState builds the per-frame snapshot. The explosion threshold of the
// active trial is deliberately absent.
func (s *SessionService) hudState(session *models.TaskSession) models.HUDState {
	hud := models.HUDState{
		Phase:      session.Phase,
		TrialCount: session.MainTrialCount(),
		Banked:     session.Banked,
	}

	switch session.Phase {
	case models.PhasePractice:
		hud.TrialIndex = session.PracticeIndex
		hud.CountLabel = fmt.Sprintf("Practice %d/%d", session.PracticeIndex, len(s.cfg.Task.Balloons))
		hud.Banked = session.PracticeBanked
	case models.PhaseMain:
		hud.TrialIndex = session.TrialIndex
		hud.CountLabel = fmt.Sprintf("%d / %d", session.TrialIndex, session.MainTrialCount())
	case models.PhaseComplete:
		hud.TrialIndex = session.MainTrialCount()
		hud.CountLabel = fmt.Sprintf("%d / %d", session.MainTrialCount(), session.MainTrialCount())
	}

	if t := session.Active; t != nil {
		hud.BalloonColor = t.Balloon.Color
		hud.Radius = t.Radius
		hud.Pumps = t.Pumps
		hud.TempBank = t.Earned
	}
	return hud
}

// RateLimit exposes the Redis rate limiter for the handler layer.
func (s *SessionService) RateLimit(sessionID, action string, limit int, window time.Duration) (bool, error) {
	return s.redis.CheckRateLimit(sessionID, action, limit, window)
}
