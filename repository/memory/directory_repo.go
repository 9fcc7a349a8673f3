package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/planhr/backend/domain"
)

// Directory bundles the employee, company and calendar lookups the planner
// resolves references through.
type Directory struct {
	mu        sync.RWMutex
	employees map[string]domain.Employee
	companies map[string]domain.Company
	calendars map[string]domain.Calendar
}

func NewDirectory() *Directory {
	return &Directory{
		employees: make(map[string]domain.Employee),
		companies: make(map[string]domain.Company),
		calendars: make(map[string]domain.Calendar),
	}
}

func (d *Directory) PutEmployee(e domain.Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[e.ID] = e
}

func (d *Directory) PutCompany(c domain.Company) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.companies[c.ID] = c
}

func (d *Directory) PutCalendar(c domain.Calendar) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calendars[c.ID] = c
}

func (d *Directory) GetByID(_ context.Context, id string) (*domain.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.employees[id]
	if !ok {
		return nil, domain.ErrEmployeeNotFound
	}
	return &e, nil
}

func (d *Directory) GetByUserID(_ context.Context, userID string) (*domain.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, e := range d.employees {
		if e.UserID == userID {
			employee := e
			return &employee, nil
		}
	}
	return nil, domain.ErrEmployeeNotFound
}

func (d *Directory) ListByIDs(_ context.Context, ids []string) (map[string]*domain.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]*domain.Employee, len(ids))
	for _, id := range ids {
		if e, ok := d.employees[id]; ok {
			employee := e
			out[id] = &employee
		}
	}
	return out, nil
}

// Companies returns a CompanyRepository view over the directory.
func (d *Directory) Companies() *CompanyView { return &CompanyView{d: d} }

// Calendars returns a CalendarRepository view over the directory.
func (d *Directory) Calendars() *CalendarView { return &CalendarView{d: d} }

type CompanyView struct{ d *Directory }

func (v *CompanyView) GetByID(_ context.Context, id string) (*domain.Company, error) {
	v.d.mu.RLock()
	defer v.d.mu.RUnlock()
	c, ok := v.d.companies[id]
	if !ok {
		return nil, domain.ErrCompanyNotFound
	}
	return &c, nil
}

func (v *CompanyView) List(_ context.Context) ([]domain.Company, error) {
	v.d.mu.RLock()
	defer v.d.mu.RUnlock()
	out := make([]domain.Company, 0, len(v.d.companies))
	for _, c := range v.d.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type CalendarView struct{ d *Directory }

func (v *CalendarView) GetByID(_ context.Context, id string) (*domain.Calendar, error) {
	v.d.mu.RLock()
	defer v.d.mu.RUnlock()
	c, ok := v.d.calendars[id]
	if !ok {
		return nil, domain.NewErrorf(domain.ErrCodeNotFound, "calendar %s not found", id)
	}
	return &c, nil
}
