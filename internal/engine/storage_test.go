package engine

import "testing"

func TestStorageIteratesInHandleOrder(t *testing.T) {
	s := NewStorage[int]("value")

	handles := []Entity{{Index: 5, Generation: 1}, {Index: 1, Generation: 1}, {Index: 3, Generation: 2}}
	for i, e := range handles {
		s.Insert(e, i)
	}

	var seen []Entity
	s.Each(func(e Entity, _ *int) {
		seen = append(seen, e)
	})

	for i := 1; i < len(seen); i++ {
		if !seen[i-1].Less(seen[i]) {
			t.Fatalf("Expected ascending handles, got %v", seen)
		}
	}

	if !s.Remove(handles[2]) {
		t.Fatal("Remove should find the component")
	}
	if s.Has(handles[2]) {
		t.Error("removed component should be gone")
	}
	if s.Len() != 2 {
		t.Errorf("Expected 2 components, got %d", s.Len())
	}
}

func TestStorageNestedBorrowPanics(t *testing.T) {
	s := NewStorage[int]("value")
	e := Entity{Index: 0, Generation: 1}
	s.Insert(e, 1)

	value, release := s.Mut(e)
	*value = 7

	defer func() {
		if recover() == nil {
			t.Error("second mutable borrow of the same cell should panic")
		}
		release()
		if got, _ := s.Get(e); got != 7 {
			t.Errorf("Expected 7 after release, got %d", got)
		}
	}()

	s.Mut(e)
}

func TestStorageDistinctCellsBorrowTogether(t *testing.T) {
	s := NewStorage[int]("value")
	a := Entity{Index: 0, Generation: 1}
	b := Entity{Index: 1, Generation: 1}
	s.Insert(a, 1)
	s.Insert(b, 2)

	s.Each(func(e Entity, v *int) {
		if e == a {
			s.With(b, func(other *int) { *other += *v })
		}
	})

	if got, _ := s.Get(b); got != 3 {
		t.Errorf("Expected 3, got %d", got)
	}
}

func TestStorageChangeTracking(t *testing.T) {
	s := NewStorage[int]("value")
	e := Entity{Index: 0, Generation: 1}
	s.Insert(e, 1)
	s.ClearChanged()

	_, release := s.MutNoChange(e)
	release()
	if s.Changed(e) {
		t.Error("MutNoChange should not mark the cell changed")
	}

	s.With(e, func(v *int) { *v = 2 })
	if !s.Changed(e) {
		t.Error("Mut should mark the cell changed")
	}
}
