package usecase

import (
	"context"
	"errors"
	"strings"

	"mockinterview/internal/domain"
	"mockinterview/internal/ports"
)

// beginInterviewLocked enters the introduction once the welcome has been
// spoken and the first batch is in.
func (s *Session) beginInterviewLocked(tok token) {
	if s.phase != domain.PhaseVoiceIntro || !s.welcomeDone || !s.introReady {
		return
	}
	s.phase = domain.PhaseIntroduction
	s.questions = s.introBatch
	s.introBatch = nil
	s.next = 0
	s.current = -1
	s.logger.Info("phase changed", "phase", s.phase, "questions", len(s.questions))
	s.advancePhaseLocked(tok)
}

// advancePhaseLocked decides what follows an answer: the next local
// question, one continuation question, or the next phase.
func (s *Session) advancePhaseLocked(tok token) {
	phase := s.phase
	if !phase.HasQuestions() || s.current >= 0 || s.fetching {
		return
	}
	if s.counts.Get(phase) < s.cfg.Budgets.Get(phase) {
		if idx := s.nextLocalLocked(); idx >= 0 {
			s.askLocked(tok, idx)
			return
		}
		s.fetchNextQuestionLocked(tok, phase)
		return
	}
	if phase == domain.PhaseBehavioral {
		s.enterEndingLocked(tok)
		return
	}
	s.transitionLocked(tok, phase.Next())
}

func (s *Session) nextLocalLocked() int {
	for i := s.next; i < len(s.questions); i++ {
		if !s.questions[i].Asked {
			return i
		}
	}
	return -1
}

// transitionLocked fetches the batch of next, then speaks the transition,
// then asks the first question of the batch.
func (s *Session) transitionLocked(tok token, next domain.Phase) {
	s.fetchBatchLocked(tok, next, func(batch []domain.Question) {
		s.phase = next
		s.questions = batch
		s.next = 0
		s.current = -1
		s.logger.Info("phase changed", "phase", next, "questions", len(batch))
		s.speakLocked(tok, s.deps.Bank.Transition(next), func() {
			s.afterLocked(tok, s.cfg.TransitionPause, "transition-pause", func() {
				s.advancePhaseLocked(tok)
			})
		})
	})
}

func (s *Session) fetchBatchLocked(tok token, phase domain.Phase, then func(batch []domain.Question)) {
	s.fetching = true
	req := ports.QuestionsRequest{JobDescription: s.jobDescription, Resume: s.resume, Phase: phase}
	budget := s.cfg.Budgets.Get(phase)
	logger := s.logger

	s.goLocked(tok, "questions", func(ctx context.Context) func() {
		var (
			questions []domain.Question
			err       = errors.New("question service is not configured")
		)
		if s.deps.Questions != nil {
			questions, err = s.deps.Questions.GenerateQuestions(ctx, req)
		}
		if err != nil || len(questions) == 0 {
			if ctx.Err() == nil {
				logger.Warn("question batch failed, using fallback", "endpoint", endpointQuestions, "phase", phase, "error", err)
				s.deps.Metrics.FallbackUsed(endpointQuestions)
			}
			questions = s.deps.Bank.Questions(phase, budget)
		}
		return func() {
			s.fetching = false
			then(questions)
		}
	})
}

func (s *Session) fetchNextQuestionLocked(tok token, phase domain.Phase) {
	s.fetching = true
	req := ports.NextQuestionRequest{
		JobDescription: s.jobDescription,
		Resume:         s.resume,
		Responses:      append([]domain.Response(nil), s.responses...),
		CurrentPhase:   phase,
		QuestionCount:  s.counts.Get(phase),
	}
	logger := s.logger

	s.goLocked(tok, "next-question", func(ctx context.Context) func() {
		var (
			text string
			err  = errors.New("question service is not configured")
		)
		if s.deps.Questions != nil {
			text, err = s.deps.Questions.GenerateNextQuestion(ctx, req)
		}
		text = strings.TrimSpace(text)
		if err != nil || text == "" {
			if ctx.Err() == nil {
				logger.Warn("continuation question failed, using fallback", "endpoint", endpointNextQuestion, "phase", phase, "error", err)
				s.deps.Metrics.FallbackUsed(endpointNextQuestion)
			}
			text = s.deps.Bank.NextQuestion(phase)
		}
		return func() {
			s.fetching = false
			if s.phase != phase {
				return
			}
			s.questions = append(s.questions, domain.Question{
				ID:       nextQuestionID(s.questions),
				Text:     text,
				Category: domain.CategoryFollowUp,
			})
			s.askLocked(tok, len(s.questions)-1)
		}
	})
}

// nextQuestionID returns an ID above every ID in the queue; remote batches
// may number their questions arbitrarily.
func nextQuestionID(questions []domain.Question) int {
	highest := 0
	for _, q := range questions {
		highest = max(highest, q.ID)
	}
	return highest + 1
}

// askLocked speaks question idx, waits the listen delay and listens.
func (s *Session) askLocked(tok token, idx int) {
	s.current = idx
	s.next = idx + 1
	s.answerOpen = false
	s.interim = ""
	s.askedAt = s.deps.Clock.Now()
	question := s.questions[idx]
	s.logger.Debug("asking question", "phase", s.phase, "question", question.ID)

	s.speakLocked(tok, question.Text, func() {
		s.askedAt = s.deps.Clock.Now()
		s.afterLocked(tok, s.cfg.ListenDelay, "listen-delay", func() {
			s.answerOpen = true
			s.maybeListenLocked(tok)
		})
	})
}

func (s *Session) enterEndingLocked(tok token) {
	s.phase = domain.PhaseEnding
	s.current = -1
	s.logger.Info("phase changed", "phase", s.phase)
	s.speakLocked(tok, s.deps.Bank.Closing, func() {
		s.enterFeedbackLocked(tok)
	})
}

// enterFeedbackLocked releases the devices and scores the interview.
func (s *Session) enterFeedbackLocked(tok token) {
	s.phase = domain.PhaseFeedback
	s.logger.Info("phase changed", "phase", s.phase)
	s.stopListeningLocked()
	s.deps.Media.Release()
	s.mediaReady = false

	s.fetching = true
	req := ports.FeedbackRequest{
		JobDescription: s.jobDescription,
		Resume:         s.resume,
		Responses:      append([]domain.Response(nil), s.responses...),
	}
	timeout := s.cfg.FeedbackTimeout
	s.goLocked(tok, "feedback", func(ctx context.Context) func() {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		feedback, source := s.finalizer.Feedback(ctx, req)
		return func() {
			s.fetching = false
			s.completeLocked(feedback, source)
		}
	})
}

func (s *Session) completeLocked(feedback domain.Feedback, source domain.FeedbackSource) {
	report := s.reportLocked(true)
	report.Feedback = &feedback
	report.FeedbackSource = source
	s.report = &report

	if err := s.finalizer.Persist(s.ctx, report); err != nil {
		s.logger.Warn("failed to save report", "error", err)
		detail := err.Error()
		s.emitLocked(func(events ports.EventSink) {
			events.SessionError(domain.ErrorCodeReport, detail)
		})
	}
	s.deps.Metrics.SessionFinished(true, report.EndedAt.Sub(report.StartedAt))
	s.logger.Info("interview completed", "responses", len(report.Responses), "feedback", source)
	s.emitLocked(func(events ports.EventSink) {
		events.FeedbackReady(report)
	})
}

// speakLocked stops listening, speaks text and runs then on completion.
// A hard synthesis error is reported but still runs then.
func (s *Session) speakLocked(tok token, text string, then func()) {
	s.stopListeningLocked()
	s.speechSeq++
	seq := s.speechSeq
	s.speaking = true
	logger := s.logger

	s.deps.Speaker.Speak(s.ctx, text, func(err error) {
		s.post(tok, "speech-done", func() {
			if seq != s.speechSeq {
				return
			}
			s.speaking = false
			if err != nil {
				logger.Warn("speech synthesis failed", "error", err)
				detail := err.Error()
				s.emitLocked(func(events ports.EventSink) {
					events.SessionError(domain.ErrorCodeSynthesis, detail)
				})
			}
			then()
		})
	})
}

func (s *Session) cancelSpeechLocked() {
	s.speechSeq++
	if s.speaking {
		s.speaking = false
		s.deps.Speaker.Cancel()
	}
}

// maybeListenLocked starts recognition when a question is waiting for an
// answer, nothing is being spoken and the microphone can be used.
func (s *Session) maybeListenLocked(tok token) {
	if s.current < 0 || s.speaking || s.listening || s.speechDisabled {
		return
	}
	if !s.micEnabled || !s.mediaReady || !s.phase.HasQuestions() {
		return
	}
	if !s.answerOpen {
		return
	}

	s.listenSeq++
	seq := s.listenSeq
	handlers := ports.ListenHandlers{
		OnInterim: func(text string) {
			s.post(tok, "interim", func() {
				if seq != s.listenSeq {
					return
				}
				s.interim = text
				s.emitLocked(func(events ports.EventSink) {
					events.InterimTranscript(text)
				})
			})
		},
		OnResult: func(text string) {
			s.post(tok, "answer", func() {
				if seq != s.listenSeq {
					return
				}
				s.listening = false
				if err := s.submitLocked(tok, text); err != nil {
					s.logger.Debug("transcript not recorded", "error", err)
				}
			})
		},
		OnError: func(err error) {
			s.post(tok, "listen-error", func() {
				if seq != s.listenSeq {
					return
				}
				s.listening = false
				s.recognitionFailedLocked(err)
			})
		},
	}

	s.listening = true
	s.wantListen.Store(seq)
	listener := s.deps.Listener
	s.goLocked(tok, "listen-start", func(ctx context.Context) func() {
		err := s.startListener(ctx, listener, seq, handlers)
		return func() {
			if err == nil || seq != s.listenSeq {
				return
			}
			s.listenSeq++
			s.wantListen.Store(0)
			s.listening = false
			s.recognitionFailedLocked(err)
		}
	})
}

// startListener opens recognition off the state lock, since providers dial
// the network. A start that is no longer wanted once it returns is stopped.
func (s *Session) startListener(ctx context.Context, listener ports.SpeechInput, seq uint64, handlers ports.ListenHandlers) error {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	if s.ended.Load() || s.wantListen.Load() != seq {
		return nil
	}
	if err := listener.Start(ctx, handlers); err != nil {
		return err
	}
	if s.ended.Load() || s.wantListen.Load() != seq {
		listener.Stop()
	}
	return nil
}

func (s *Session) stopListeningLocked() {
	s.listenSeq++
	s.wantListen.Store(0)
	if s.listening {
		s.listening = false
		s.deps.Listener.Stop()
	}
}

func (s *Session) recognitionFailedLocked(err error) {
	kind := domain.RecognitionKind(err)
	code := domain.ErrorCodeSpeechCapture
	var recErr *domain.RecognitionError
	if errors.As(err, &recErr) {
		code = recErr.Code()
	}

	switch kind {
	case domain.RecognitionUnsupported:
		s.speechDisabled = true
		s.speechBanner = bannerSpeechUnsupported
	case domain.RecognitionNotAllowed:
		s.speechDisabled = true
		s.speechBanner = bannerSpeechDenied
	case domain.RecognitionAudioCapture:
		s.speechBanner = bannerSpeechCapture
		if s.deps.Media.ActiveTracks() < 2 {
			s.mediaReady = false
			s.mediaBanner = bannerMediaLost
		}
	default:
		s.speechBanner = bannerSpeechCapture
	}
	s.logger.Warn("speech recognition stopped", "kind", kind, "error", err)
	detail := err.Error()
	s.emitLocked(func(events ports.EventSink) {
		events.SessionError(code, detail)
	})
}

// submitLocked appends the response for the active question and schedules
// the phase decision after the settle delay.
func (s *Session) submitLocked(tok token, text string) error {
	if !s.phase.HasQuestions() || s.current < 0 || s.current >= len(s.questions) {
		return ErrNoActiveQuestion
	}
	if s.counts.Get(s.phase) >= s.cfg.Budgets.Get(s.phase) {
		return ErrNoActiveQuestion
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyAnswer
	}

	s.stopListeningLocked()
	s.cancelSpeechLocked()

	now := s.deps.Clock.Now()
	question := &s.questions[s.current]
	question.Asked = true
	response := domain.Response{
		QuestionID:   question.ID,
		QuestionText: question.Text,
		Answer:       text,
		Phase:        s.phase,
		Timestamp:    now,
		Duration:     now.Sub(s.askedAt),
	}
	s.responses = append(s.responses, response)
	s.counts = s.counts.Inc(s.phase)
	s.current = -1
	s.answerOpen = false
	s.interim = ""
	s.deps.Metrics.ResponseRecorded(response.Phase, response.Skipped())
	s.logger.Info("answer recorded",
		"phase", response.Phase,
		"question", response.QuestionID,
		"skipped", response.Skipped(),
		"count", s.counts.Get(response.Phase),
	)

	s.afterLocked(tok, s.cfg.SettleDelay, "settle", func() {
		s.advancePhaseLocked(tok)
	})
	return nil
}

func (s *Session) acquireMediaLocked() {
	if s.mediaPending {
		return
	}
	if s.mediaReady && s.deps.Media.ActiveTracks() >= 2 {
		return
	}
	s.mediaReady = false
	s.mediaPending = true
	s.mediaBanner = ""
	ctx := s.parent
	logger := s.logger

	s.cfg.Go(func() {
		err := s.deps.Media.Acquire(ctx)
		s.postAny("media", func() {
			s.mediaPending = false
			if err == nil {
				s.mediaReady = true
				s.mediaBanner = ""
				if !s.speechDisabled {
					s.speechBanner = ""
				}
				s.deps.Media.SetMicEnabled(s.micEnabled)
				s.deps.Media.SetCameraEnabled(s.cameraEnabled)
				s.maybeListenLocked(s.tokenLocked())
				return
			}

			code := domain.ErrorCodeMedia
			message := "Could not start camera or microphone."
			var mediaErr *domain.MediaError
			if errors.As(err, &mediaErr) {
				code = mediaErr.Code()
				message = mediaErr.Message()
				s.deps.Metrics.MediaFailed(mediaErr.Kind)
			} else {
				s.deps.Metrics.MediaFailed(domain.MediaUnknown)
			}
			logger.Warn("media unavailable", "error", err)
			s.mediaBanner = message
			detail := err.Error()
			s.emitLocked(func(events ports.EventSink) {
				events.SessionError(code, detail)
			})
		})
	})
}

func (s *Session) watchAttentionLocked(tok token) {
	if s.deps.Attention == nil {
		return
	}
	signals := s.deps.Attention.Watch(s.ctx)
	s.cfg.Go(func() {
		for signal := range signals {
			signal := signal
			s.post(tok, "attention", func() {
				s.attention = &signal
			})
		}
	})
}
