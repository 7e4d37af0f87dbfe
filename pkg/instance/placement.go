package instance

import (
	"tokfleet/pkg/device"
	"tokfleet/pkg/window"
)

// Fallback origin when auto-arrange is off or a window does not fit.
const (
	defaultOriginX = 100
	defaultOriginY = 100
)

// PackedPlacement computes the grid position for the index-th instance
// with zero gap: columns from the available width, col = index mod
// columns, row = index div columns. ok is false when the instance would
// extend past the bottom edge of the work area.
func PackedPlacement(area window.Rect, index, width, height int) (x, y int, ok bool) {
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}

	columns := area.Width / width
	if columns < 1 {
		columns = 1
	}

	col := index % columns
	row := index / columns

	x = area.X + col*width
	y = area.Y + row*height

	if y+height > area.Y+area.Height {
		return 0, 0, false
	}
	return x, y, true
}

// placementLocked resolves the creation-time position for a new
// instance. Manual mode pins everything at the default origin.
func (p *Pool) placementLocked(index, width, height int) (x, y int, ok bool) {
	if !p.settings.AutoArrange {
		return defaultOriginX, defaultOriginY, true
	}
	return PackedPlacement(p.screen.WorkArea(), index, width, height)
}

// RearrangeAll recomputes packed placement for every live record in
// creation order and repositions + re-raises each window. Instances
// that would overflow the bottom edge are skipped with a warning.
// Safe to call with zero instances.
func (p *Pool) RearrangeAll() {
	p.mu.Lock()
	cellProfile, ok := device.Lookup(p.settings.DeviceKey)
	if !ok {
		cellProfile = device.Default()
	}
	live := make([]*Record, 0, len(p.records))
	for _, id := range p.order {
		if record, exists := p.records[id]; exists && !record.Handle.IsDestroyed() {
			live = append(live, record)
		}
	}
	area := p.screen.WorkArea()
	p.mu.Unlock()

	for index, record := range live {
		x, y, fits := PackedPlacement(area, index, cellProfile.Width, cellProfile.Height)
		if !fits {
			p.log.WarnWithFields("instance would be off-screen, skipping", map[string]interface{}{
				"account_id": record.AccountID,
				"index":      index,
			})
			continue
		}

		record.Handle.SetBounds(window.Rect{
			X:      x,
			Y:      y,
			Width:  cellProfile.Width,
			Height: cellProfile.Height,
		})
		record.Handle.Show()
	}
}
