package population

import "fmt"

// RegistryState - сериализуемое состояние реестра. Группы и маски в него не входят:
// они восстанавливаются из конфигурации мира той же версии.
type RegistryState struct {
	WorldID   string     `json:"worldId"`
	Version   int64      `json:"version"`
	LastTick  int64      `json:"lastTick"`
	RNG       uint32     `json:"rng"`
	Instances []Instance `json:"instances"`
}

// State возвращает копию состояния реестра
func (r *Registry) State() *RegistryState {
	st := &RegistryState{
		WorldID:   r.WorldID,
		Version:   r.Version,
		LastTick:  r.LastTick,
		RNG:       r.Rand.State(),
		Instances: make([]Instance, 0, len(r.Instances)),
	}
	for _, inst := range r.Instances {
		cp := *inst
		if inst.Path != nil {
			cp.Path = append(cp.Path[:0:0], inst.Path...)
		}
		st.Instances = append(st.Instances, cp)
	}
	return st
}

// Restore переносит сохраненное состояние в реестр той же версии мира.
// Экземпляры, которых нет в текущей конфигурации, игнорируются.
func (r *Registry) Restore(st *RegistryState) error {
	if st == nil {
		return fmt.Errorf("пустое состояние реестра")
	}
	if st.WorldID != r.WorldID || st.Version != r.Version {
		return fmt.Errorf("состояние мира %s v%d не подходит реестру %s v%d",
			st.WorldID, st.Version, r.WorldID, r.Version)
	}

	for i := range st.Instances {
		saved := st.Instances[i]
		inst, ok := r.byID[saved.ID]
		if !ok || saved.GroupID != inst.GroupID {
			continue
		}
		restored := saved
		if saved.Path != nil {
			restored.Path = append(saved.Path[:0:0], saved.Path...)
		}
		*inst = restored
	}
	r.LastTick = st.LastTick
	r.Rand.Restore(st.RNG)
	return nil
}
