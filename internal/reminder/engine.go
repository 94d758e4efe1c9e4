package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/caregivers"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/medicines"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/notify"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/platform/logger"
)

var (
	// ErrReminderLimit: la dosis ya agotó su tope de recordatorios+snoozes.
	ErrReminderLimit = errors.New("reminder limit reached")
)

// Catalog es la vista del catálogo de medicinas que el engine necesita.
type Catalog interface {
	GetByID(ctx context.Context, id string) (medicines.Medicine, error)
	ListActive(ctx context.Context, userID string) ([]medicines.Medicine, error)
}

// CaregiverDirectory resuelve los destinatarios de escalaciones.
type CaregiverDirectory interface {
	ListByUser(ctx context.Context, userID string) ([]caregivers.Caregiver, error)
}

// UserContact es el contacto del propio usuario para canales que necesitan
// dirección (SMS, email). Lo resuelve un colaborador externo.
type UserContact struct {
	Phone string
	Email string
}

// UserDirectory es opcional; sin él, los recordatorios solo salen por
// canales locales (voz, notificación de sistema).
type UserDirectory interface {
	Contact(ctx context.Context, userID string) (UserContact, error)
}

// StaticContact resuelve el mismo contacto para cualquier usuario. Cubre el
// despliegue local de un solo hogar, donde teléfono y email vienen de la
// configuración.
type StaticContact struct {
	Phone string
	Email string
}

func (s StaticContact) Contact(ctx context.Context, userID string) (UserContact, error) {
	return UserContact{Phone: s.Phone, Email: s.Email}, nil
}

// Dispatcher es el contrato del despachador de notificaciones.
type Dispatcher interface {
	Send(ctx context.Context, channels []string, n notify.Notification) []notify.Result
}

// Summarizer agrega métricas de adherencia (lo implementa doses.Service).
type Summarizer interface {
	Summarize(ctx context.Context, userID string, from, to time.Time) (doses.Summary, error)
}

// Config son los parámetros de operación del engine.
type Config struct {
	// HorizonDays es la ventana de materialización hacia adelante.
	HorizonDays int
	// GraceWindow es cuánto se espera la confirmación antes de declarar la
	// dosis perdida.
	GraceWindow time.Duration
	// DefaultSnooze se usa cuando ni el request ni la medicina definen el
	// diferimiento.
	DefaultSnooze time.Duration
	// MaxReminders acota recordatorios+snoozes por dosis cuando la medicina
	// no define su propio tope. 0 = sin tope.
	MaxReminders int

	// UserChannels son los canales para recordatorios al usuario.
	UserChannels []string

	DispatchWorkers int
	QueueSize       int

	// ExtendInterval es la cadencia del loop que re-extiende el horizonte.
	ExtendInterval time.Duration
	// ReportInterval es la cadencia del reporte de adherencia; 0 lo apaga.
	ReportInterval time.Duration
}

func (c *Config) withDefaults() {
	if c.HorizonDays <= 0 {
		c.HorizonDays = 30
	}
	if c.GraceWindow <= 0 {
		c.GraceWindow = 15 * time.Minute
	}
	if c.DefaultSnooze <= 0 {
		c.DefaultSnooze = 5 * time.Minute
	}
	if len(c.UserChannels) == 0 {
		c.UserChannels = []string{notify.ChannelVoice, notify.ChannelSystem}
	}
	if c.DispatchWorkers <= 0 {
		c.DispatchWorkers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.ExtendInterval <= 0 {
		c.ExtendInterval = 24 * time.Hour
	}
}

// Deps son los colaboradores del engine. Store, Catalog y Dispatcher son
// obligatorios; el resto degrada funcionalidad si falta.
type Deps struct {
	Store      doses.Repository
	Catalog    Catalog
	Caregivers CaregiverDirectory
	Users      UserDirectory
	Dispatcher Dispatcher
	Adherence  Summarizer
	Templates  *TemplateSet
}

// Engine orquesta scheduler, ciclo de vida de dosis, dispatcher y store.
// Es un componente construido explícitamente con Start/Stop idempotentes;
// no hay estado global.
type Engine struct {
	log logger.Logger
	cfg Config

	store      doses.Repository
	catalog    Catalog
	caregivers CaregiverDirectory
	users      UserDirectory
	dispatcher Dispatcher
	adherence  Summarizer
	templates  *TemplateSet

	sched  *Scheduler
	events eventBus

	now func() time.Time

	// Disciplina single-writer por dosis: eventos concurrentes para la
	// misma clave se serializan acá. Las entradas se descartan cuando nadie
	// las sostiene; el registry no crece con el historial.
	lockMu    sync.Mutex
	doseLocks map[doses.Key]*doseLock

	runMu   sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	jobs    chan dispatchJob
}

func NewEngine(log logger.Logger, cfg Config, deps Deps) (*Engine, error) {
	cfg.withDefaults()

	if deps.Store == nil || deps.Catalog == nil || deps.Dispatcher == nil {
		return nil, errors.New("reminder: store, catalog and dispatcher are required")
	}

	tpl := deps.Templates
	if tpl == nil {
		var err error
		tpl, err = NewTemplateSet(TemplateStrings{})
		if err != nil {
			return nil, err
		}
	}

	e := &Engine{
		log:        log,
		cfg:        cfg,
		store:      deps.Store,
		catalog:    deps.Catalog,
		caregivers: deps.Caregivers,
		users:      deps.Users,
		dispatcher: deps.Dispatcher,
		adherence:  deps.Adherence,
		templates:  tpl,
		now:        time.Now,
		doseLocks:  make(map[doses.Key]*doseLock),
		ctx:        context.Background(),
	}
	e.sched = NewScheduler(log, deps.Store, e)
	return e, nil
}

// Scheduler expone el scheduler para consultas (timers activos, etc.).
func (e *Engine) Scheduler() *Scheduler { return e.sched }

// Start levanta el worker pool de dispatch, materializa el horizonte inicial
// y arranca los loops de extensión y reporte. Arrancar un engine ya corriendo
// loguea y no hace nada.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.running {
		e.log.Warn("engine already running", nil)
		return nil
	}

	e.ctx, e.cancel = context.WithCancel(ctx)
	e.jobs = make(chan dispatchJob, e.cfg.QueueSize)

	for i := 0; i < e.cfg.DispatchWorkers; i++ {
		e.wg.Add(1)
		go e.dispatchWorker()
	}

	// Materialización inicial. Si el catálogo no responde arrancamos igual,
	// en modo degradado: sin timers nuevos hasta el próximo ciclo.
	if err := e.extendHorizon(e.ctx); err != nil {
		e.log.Error("initial materialization failed, running degraded", map[string]any{
			"err": err.Error(),
		})
	}

	e.wg.Add(1)
	go e.extendLoop()

	if e.cfg.ReportInterval > 0 && e.adherence != nil {
		e.wg.Add(1)
		go e.reportLoop()
	}

	e.running = true
	e.log.Info("reminder engine started", map[string]any{
		"horizon_days": e.cfg.HorizonDays,
		"grace_window": e.cfg.GraceWindow.String(),
		"workers":      e.cfg.DispatchWorkers,
	})
	return nil
}

// Stop frena timers, loops y workers. Idempotente.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if !e.running {
		return
	}

	e.cancel()
	e.sched.StopAll()
	e.wg.Wait()
	e.running = false
	e.log.Info("reminder engine stopped", nil)
}

// ---------------------------------------------------------------
// medicines.Listener: cambios de catálogo
// ---------------------------------------------------------------

func (e *Engine) MedicineScheduled(ctx context.Context, m medicines.Medicine) {
	if _, err := e.sched.RescheduleMedicine(ctx, m, e.cfg.HorizonDays); err != nil {
		e.log.Error("reschedule failed", map[string]any{
			"medicine_id": m.ID,
			"err":         err.Error(),
		})
	}
}

func (e *Engine) MedicineCanceled(ctx context.Context, medicineID string) {
	removed := e.sched.CancelMedicine(medicineID)
	e.log.Info("medicine reminders canceled", map[string]any{
		"medicine_id": medicineID,
		"removed":     removed,
	})
}

// ---------------------------------------------------------------
// TriggerHandler: disparos de timers
// ---------------------------------------------------------------

// DoseDue corre cuando vence el timer de una dosis: Pending pasa a Reminded,
// se despacha el recordatorio y se arma el chequeo de gracia.
func (e *Engine) DoseDue(key doses.Key) {
	ctx := e.ctx
	unlock := e.lockDose(key)
	defer unlock()

	d, err := e.store.Get(ctx, key)
	if err != nil {
		// La dosis desapareció antes del disparo: se descarta en silencio.
		e.log.Debug("due fire for unknown dose", map[string]any{"dose": key.String()})
		return
	}

	m, err := e.catalog.GetByID(ctx, key.MedicineID)
	if err != nil || !m.Active {
		e.log.Info("due fire for missing or inactive medicine", map[string]any{
			"dose": key.String(),
		})
		return
	}

	now := e.now()
	updated, err := doses.Remind(d, now)
	if err != nil {
		// Ya resuelta: no-op.
		return
	}

	if err := e.store.Update(ctx, updated); err != nil {
		// Sin retry (decisión registrada): el recordatorio sale igual, el
		// contador puede quedar atrasado en el store.
		e.log.Error("persist reminded failed", map[string]any{
			"dose": key.String(),
			"err":  err.Error(),
		})
	}

	e.enqueue(dispatchJob{kind: notify.KindReminder, dose: updated, medicine: m})
	e.sched.ArmGraceCheck(key, e.cfg.GraceWindow)
	e.events.emitReminded(DoseRemindedEvent{Dose: updated, Medicine: m})
}

// GraceElapsed corre al vencer la ventana de gracia. Re-lee el estado: si el
// usuario confirmó en el medio, es un no-op; si sigue sin resolverse, la
// dosis pasa a Missed y se escala a cuidadores exactamente una vez.
func (e *Engine) GraceElapsed(key doses.Key) {
	ctx := e.ctx
	unlock := e.lockDose(key)
	defer unlock()

	d, err := e.store.Get(ctx, key)
	if err != nil {
		return
	}

	now := e.now()
	updated, err := doses.MarkMissed(d, now)
	if err != nil {
		// Confirmada justo antes del chequeo: carrera resuelta a favor del
		// usuario.
		return
	}

	updated, first := doses.NotifyCaregiver(updated, now)

	if err := e.store.Update(ctx, updated); err != nil {
		e.log.Error("persist missed failed", map[string]any{
			"dose": key.String(),
			"err":  err.Error(),
		})
	}

	if first {
		if m, merr := e.catalog.GetByID(ctx, key.MedicineID); merr == nil {
			e.enqueue(dispatchJob{kind: notify.KindEscalation, dose: updated, medicine: m})
		} else {
			e.log.Error("escalation skipped, medicine lookup failed", map[string]any{
				"dose": key.String(),
				"err":  merr.Error(),
			})
		}
	}

	e.events.emitMissed(DoseMissedEvent{Dose: updated, Escalated: first})
}

// ---------------------------------------------------------------
// Confirmaciones externas
// ---------------------------------------------------------------

// Confirm aplica la resolución reportada por el usuario. Vale desde Pending
// (confirmación anticipada) o Reminded; sobre una dosis terminal devuelve
// doses.ErrTerminalStatus sin tocar nada.
func (e *Engine) Confirm(ctx context.Context, key doses.Key, outcome doses.Outcome, actualTime *time.Time, reason string) (doses.ScheduledDose, error) {
	unlock := e.lockDose(key)
	defer unlock()

	d, err := e.store.Get(ctx, key)
	if err != nil {
		return doses.ScheduledDose{}, err
	}

	now := e.now()
	var updated doses.ScheduledDose

	switch outcome {
	case doses.OutcomeTaken:
		at := now
		if actualTime != nil {
			at = *actualTime
		}
		updated, err = doses.ConfirmTaken(d, at)
	case doses.OutcomeSkipped:
		updated, err = doses.ConfirmSkipped(d, now, reason)
	default:
		return d, doses.ErrInvalidTransition
	}
	if err != nil {
		return d, err
	}

	if perr := e.store.Update(ctx, updated); perr != nil {
		return d, perr
	}

	// La dosis quedó terminal: sus timers ya no aportan nada.
	e.sched.CancelDose(key)

	switch outcome {
	case doses.OutcomeTaken:
		e.events.emitTaken(DoseTakenEvent{Dose: updated})
	case doses.OutcomeSkipped:
		e.events.emitSkipped(DoseSkippedEvent{Dose: updated, Reason: reason})
	}

	e.log.Info("dose confirmed", map[string]any{
		"dose":    key.String(),
		"outcome": string(outcome),
	})
	return updated, nil
}

// Snooze difiere el recordatorio de una dosis ya recordada. minutes <= 0 usa
// el diferimiento de la medicina (o el default del engine). Aplica el tope
// de recordatorios de la medicina.
func (e *Engine) Snooze(ctx context.Context, key doses.Key, minutes int) (doses.ScheduledDose, error) {
	unlock := e.lockDose(key)
	defer unlock()

	d, err := e.store.Get(ctx, key)
	if err != nil {
		return doses.ScheduledDose{}, err
	}

	m, err := e.catalog.GetByID(ctx, key.MedicineID)
	if err != nil {
		return d, err
	}

	if minutes <= 0 {
		minutes = m.SnoozeMinutes
	}
	if minutes <= 0 {
		minutes = int(e.cfg.DefaultSnooze.Minutes())
	}

	limit := m.MaxReminders
	if limit == 0 {
		limit = e.cfg.MaxReminders
	}
	if limit > 0 && d.RemindersSent >= limit {
		return d, ErrReminderLimit
	}

	updated, err := doses.Snooze(d, e.now())
	if err != nil {
		return d, err
	}

	if perr := e.store.Update(ctx, updated); perr != nil {
		return d, perr
	}

	// El chequeo de gracia viejo correspondía al recordatorio anterior; el
	// re-disparo arma uno nuevo.
	e.sched.CancelGrace(key)
	e.sched.ArmSnooze(key, time.Duration(minutes)*time.Minute)

	e.log.Info("dose snoozed", map[string]any{
		"dose":    key.String(),
		"minutes": minutes,
	})
	return updated, nil
}

// ---------------------------------------------------------------
// Dispatch (worker pool)
// ---------------------------------------------------------------

type dispatchJob struct {
	kind     notify.Kind
	dose     doses.ScheduledDose
	medicine medicines.Medicine
}

// enqueue manda el job al pool. El I/O de canales es bloqueante y no debe
// correr en el goroutine del timer. Con el engine sin arrancar (tests) el
// dispatch corre inline.
func (e *Engine) enqueue(job dispatchJob) {
	if e.jobs == nil {
		e.dispatch(job)
		return
	}
	select {
	case e.jobs <- job:
	case <-e.ctx.Done():
		e.log.Warn("dispatch dropped on shutdown", map[string]any{
			"dose": job.dose.Key().String(),
		})
	}
}

func (e *Engine) dispatchWorker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case job := <-e.jobs:
			e.dispatch(job)
		}
	}
}

func (e *Engine) dispatch(job dispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch job.kind {
	case notify.KindReminder:
		e.dispatchReminder(ctx, job)
	case notify.KindEscalation:
		e.dispatchEscalation(ctx, job)
	}
}

func (e *Engine) dispatchReminder(ctx context.Context, job dispatchJob) {
	n := notify.Notification{
		Kind:    notify.KindReminder,
		UserID:  job.dose.UserID,
		Subject: "Medicine reminder: " + job.medicine.Name,
		Body:    e.templates.renderReminder(job.dose, job.medicine),
	}
	if e.users != nil {
		if contact, err := e.users.Contact(ctx, job.dose.UserID); err == nil {
			n.Phone = contact.Phone
			n.Email = contact.Email
		}
	}

	results := e.dispatcher.Send(ctx, e.cfg.UserChannels, n)
	if !notify.AnySuccess(results) {
		// Sin retry automático: queda logueado y el contador ya subió.
		e.log.Error("reminder not delivered on any channel", map[string]any{
			"dose": job.dose.Key().String(),
		})
	}
}

func (e *Engine) dispatchEscalation(ctx context.Context, job dispatchJob) {
	if e.caregivers == nil {
		e.log.Warn("no caregiver directory, escalation dropped", map[string]any{
			"dose": job.dose.Key().String(),
		})
		return
	}

	list, err := e.caregivers.ListByUser(ctx, job.dose.UserID)
	if err != nil {
		e.log.Error("caregiver lookup failed", map[string]any{
			"user_id": job.dose.UserID,
			"err":     err.Error(),
		})
		return
	}

	subject := e.templates.renderEscalationSubject(job.dose, job.medicine)
	body := e.templates.renderEscalation(job.dose, job.medicine)

	for _, cg := range list {
		channels := make([]string, 0, 2)
		if cg.NotifyByEmail && cg.Email != "" {
			channels = append(channels, notify.ChannelEmail)
		}
		if cg.NotifyBySMS && cg.Phone != "" {
			channels = append(channels, notify.ChannelSMS)
		}
		if len(channels) == 0 {
			continue
		}

		e.dispatcher.Send(ctx, channels, notify.Notification{
			Kind:    notify.KindEscalation,
			UserID:  job.dose.UserID,
			Phone:   cg.Phone,
			Email:   cg.Email,
			Subject: subject,
			Body:    body,
		})
	}
}

// ---------------------------------------------------------------
// Loops de fondo
// ---------------------------------------------------------------

// extendLoop re-materializa el horizonte periódicamente para que la ventana
// fija nunca se agote.
func (e *Engine) extendLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.ExtendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			if err := e.extendHorizon(e.ctx); err != nil {
				e.log.Error("horizon extension failed", map[string]any{
					"err": err.Error(),
				})
			}
		}
	}
}

// extendHorizon agenda (idempotente) todas las medicinas activas.
func (e *Engine) extendHorizon(ctx context.Context) error {
	active, err := e.catalog.ListActive(ctx, "")
	if err != nil {
		return err
	}

	for _, m := range active {
		if _, err := e.sched.ScheduleMedicine(ctx, m, e.cfg.HorizonDays); err != nil {
			e.log.Error("schedule failed", map[string]any{
				"medicine_id": m.ID,
				"err":         err.Error(),
			})
		}
	}
	return nil
}

type doseLock struct {
	mu   sync.Mutex
	refs int
}

// lockDose serializa las mutaciones de una misma dosis. El contador de
// referencias evita la carrera entre un waiter que ya tiene el puntero y la
// remoción de la entrada: solo se borra cuando nadie la sostiene.
func (e *Engine) lockDose(key doses.Key) func() {
	e.lockMu.Lock()
	l, ok := e.doseLocks[key]
	if !ok {
		l = &doseLock{}
		e.doseLocks[key] = l
	}
	l.refs++
	e.lockMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		e.lockMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.doseLocks, key)
		}
		e.lockMu.Unlock()
	}
}
