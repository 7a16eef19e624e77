package loom

// EnvRecord is spec.md §3's Env record: a heap-allocated tuple of
// tagged cells, one per mutable-captured variable, owned by exactly
// one closure instance. Read-only captures never get a slot — per
// spec.md §4.4 they're emitted as a snapshot taken at closure
// construction, not routed through the env record at all.
type EnvRecord struct {
	Slots []Cell
}

// BuildEnv implements spec.md §6's build_env(captures, outer_env):
// it assigns each mutable capture a slot index, allocates the env
// record, and copies the outer binding's current value into each slot
// at construction time. lookup supplies that current value (the
// interpreter's live binding store); env.go itself holds no notion of
// an execution environment.
func BuildEnv(captures []*CaptureRecord, lookup func(name string) Cell) *EnvRecord {
	n := 0
	for _, c := range captures {
		if c.IsMutable {
			c.EnvSlot = n
			n++
		}
	}

	env := &EnvRecord{Slots: make([]Cell, n)}
	for _, c := range captures {
		if !c.IsMutable {
			continue
		}
		v := lookup(c.Name)
		if v.Tag == CellContainer {
			v.ref.Retain()
		}
		env.Slots[c.EnvSlot] = v
	}
	return env
}

// EnvLoad implements env_load(env_ref, slot_index): a read of a
// captured mutable variable inside the closure.
func EnvLoad(env *EnvRecord, slot int) Cell {
	return env.Slots[slot]
}

// EnvStore implements env_store(env_ref, slot_index, tagged): a write
// of a captured mutable variable inside the closure. Per spec.md
// §4.4's semantics, this never propagates to the outer binding's own
// storage — the env slot is the closure's own writable copy.
func EnvStore(env *EnvRecord, slot int, value Cell) {
	old := env.Slots[slot]
	if old.Tag == CellContainer {
		old.ref.Release()
	}
	if value.Tag == CellContainer {
		value.ref.Retain()
	}
	env.Slots[slot] = value
}

// Release decrements the reference count of every container-valued
// slot in env, implementing spec.md §4.4's env lifetime rule: "when
// the last reference to the closure is released, the env record is
// released and its slots' referenced payloads are decremented."
func (env *EnvRecord) Release() {
	if env == nil {
		return
	}
	for _, c := range env.Slots {
		if c.Tag == CellContainer {
			c.ref.Release()
		}
	}
}
