// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import (
	"testing"

	"github.com/BurntSushi/xgb/damage"
)

func TestHandleDamageNotifyIgnoresMismatchedDamageId(t *testing.T) {
	p := &windowPixmap{damage: 5, damaged: false}

	p.handleDamageNotify(damage.NotifyEvent{Damage: 9})
	if p.isDamaged() {
		t.Fatalf("a DamageNotify for a different damage id must be ignored")
	}

	p.handleDamageNotify(damage.NotifyEvent{Damage: 5})
	if !p.isDamaged() {
		t.Fatalf("a DamageNotify for this pixmap's damage id must set damaged")
	}
}

func TestWindowPixmapSizeReturnsConstructionValues(t *testing.T) {
	p := &windowPixmap{width: 300, height: 400, depth: 24}
	w, h, d := p.size()
	if w != 300 || h != 400 || d != 24 {
		t.Fatalf("size() = (%d, %d, %d), want (300, 400, 24)", w, h, d)
	}
}
