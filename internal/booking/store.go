package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"

	DateLayout = "2006-01-02"
)

var (
	ErrInvalidDate = errors.New("invalid date format, use YYYY-MM-DD")
	ErrClosed      = errors.New("closed on sundays")
	ErrNotFound    = errors.New("appointment not found")
)

// SlotTakenError is returned by Book when the requested slot has no room.
// Open holds up to five alternatives on the same day.
type SlotTakenError struct {
	Date string
	Time string
	Open []string
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("%s on %s is not available", e.Time, e.Date)
}

type Appointment struct {
	ID           int    `json:"id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	Service      string `json:"service"`
	Staff        string `json:"staff"`
	Duration     int    `json:"duration"`
	Price        int    `json:"price"`
	Status       string `json:"status"`
}

type TimeSlots struct {
	MondayToFriday []string `json:"monday_to_friday"`
	Saturday       []string `json:"saturday"`
}

// Document is the on-disk layout of the bookings file.
type Document struct {
	Appointments      []Appointment `json:"appointments"`
	NextAppointmentID int           `json:"next_appointment_id"`
	TimeSlots         *TimeSlots    `json:"time_slots,omitempty"`
}

func DefaultTimeSlots() TimeSlots {
	return TimeSlots{
		MondayToFriday: []string{
			"09:00 AM", "10:00 AM", "11:00 AM", "12:00 PM",
			"01:00 PM", "02:00 PM", "03:00 PM", "04:00 PM", "05:00 PM",
		},
		Saturday: []string{
			"10:00 AM", "11:00 AM", "12:00 PM", "01:00 PM", "02:00 PM", "03:00 PM",
		},
	}
}

type Availability struct {
	Date string
	// Open lists the free slot labels of the day in schedule order.
	Open []string
	// Time and Available are set only when a specific time was asked for.
	Time      string
	Available bool
}

// Store is a JSON file of appointments. Every operation re-reads the file
// and every mutation writes it back; the mutex only serializes callers in
// this process.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Availability(date, at string) (Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return Availability{}, err
	}
	return availability(doc, date, at)
}

// Book creates a confirmed appointment if its slot is free.
func (s *Store) Book(a Appointment) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return Appointment{}, err
	}

	av, err := availability(doc, a.Date, a.Time)
	if err != nil {
		return Appointment{}, err
	}
	if !av.Available {
		return Appointment{}, &SlotTakenError{Date: a.Date, Time: a.Time, Open: head(av.Open, 5)}
	}

	a.ID = nextID(doc)
	a.Time = av.Time
	a.Status = StatusConfirmed
	if a.Staff == "" {
		a.Staff = "Any"
	}

	doc.Appointments = append(doc.Appointments, a)
	doc.NextAppointmentID = a.ID + 1

	if err := s.save(doc); err != nil {
		return Appointment{}, err
	}
	return a, nil
}

func (s *Store) Cancel(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i := range doc.Appointments {
		if doc.Appointments[i].ID == id {
			doc.Appointments[i].Status = StatusCancelled
			return s.save(doc)
		}
	}
	return fmt.Errorf("cancel #%d: %w", id, ErrNotFound)
}

// Complete removes the appointment from the file entirely.
func (s *Store) Complete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	kept := doc.Appointments[:0]
	found := false
	for _, a := range doc.Appointments {
		if a.ID == id {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return fmt.Errorf("complete #%d: %w", id, ErrNotFound)
	}
	doc.Appointments = kept

	return s.save(doc)
}

// Confirmed returns all confirmed appointments ordered by date, then time.
func (s *Store) Confirmed() ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	var out []Appointment
	for _, a := range doc.Appointments {
		if a.Status == StatusConfirmed {
			out = append(out, a)
		}
	}
	sortAppointments(out)

	return out, nil
}

func (s *Store) Today(now time.Time) ([]Appointment, error) {
	all, err := s.Confirmed()
	if err != nil {
		return nil, err
	}

	today := now.Format(DateLayout)
	var out []Appointment
	for _, a := range all {
		if a.Date == today {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		slots := DefaultTimeSlots()
		return &Document{NextAppointmentID: 1, TimeSlots: &slots}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bookings: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse bookings %s: %w", s.path, err)
	}
	if doc.TimeSlots == nil {
		slots := DefaultTimeSlots()
		doc.TimeSlots = &slots
	}
	if doc.NextAppointmentID < 1 {
		doc.NextAppointmentID = 1
	}

	return &doc, nil
}

func (s *Store) save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bookings: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".bookings-*.json")
	if err != nil {
		return fmt.Errorf("write bookings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write bookings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write bookings: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace bookings: %w", err)
	}
	return nil
}

func availability(doc *Document, date, at string) (Availability, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return Availability{}, fmt.Errorf("%q: %w", date, ErrInvalidDate)
	}
	if day.Weekday() == time.Sunday {
		return Availability{}, ErrClosed
	}

	slots := doc.TimeSlots.MondayToFriday
	if day.Weekday() == time.Saturday {
		slots = doc.TimeSlots.Saturday
	}

	taken := make(map[int]bool)
	for _, a := range doc.Appointments {
		if a.Date != date || a.Status != StatusConfirmed {
			continue
		}
		if m, ok := ParseClock(a.Time); ok {
			taken[m] = true
		}
	}

	av := Availability{Date: date}
	for _, slot := range slots {
		m, ok := ParseClock(slot)
		if !ok || taken[m] {
			continue
		}
		av.Open = append(av.Open, slot)
	}

	if at == "" {
		return av, nil
	}

	av.Time = at
	want, ok := ParseClock(at)
	if !ok {
		return av, nil
	}
	for _, slot := range av.Open {
		if m, _ := ParseClock(slot); m == want {
			av.Time = slot
			av.Available = true
			break
		}
	}

	return av, nil
}

func nextID(doc *Document) int {
	id := doc.NextAppointmentID
	for _, a := range doc.Appointments {
		if a.ID >= id {
			id = a.ID + 1
		}
	}
	return id
}

func sortAppointments(as []Appointment) {
	sort.SliceStable(as, func(i, j int) bool {
		if as[i].Date != as[j].Date {
			return as[i].Date < as[j].Date
		}
		mi, _ := ParseClock(as[i].Time)
		mj, _ := ParseClock(as[j].Time)
		return mi < mj
	})
}

func head(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
