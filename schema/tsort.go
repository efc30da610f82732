package schema

// topologicalSort orders items so that every item comes after its dependencies, using DFS with
// three-color marking. Dependencies outside of items are ignored, as are self references.
// Items without an ordering constraint keep their input order.
func topologicalSort[T any](items []T, dependencies map[string][]string, getID func(T) string) ([]T, error) {
	var sorted []T
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	itemMap := make(map[string]T)

	for _, item := range items {
		itemMap[getID(item)] = item
	}

	var path []string
	var visit func(string) error
	visit = func(id string) error {
		if visiting[id] {
			return &CyclicDependencyError{Tables: cycleOf(path, id)}
		}
		if visited[id] {
			return nil
		}

		visiting[id] = true
		path = append(path, id)

		for _, dep := range dependencies[id] {
			if dep == id {
				continue
			}
			if _, exists := itemMap[dep]; exists {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		visiting[id] = false
		visited[id] = true
		sorted = append(sorted, itemMap[id])
		return nil
	}

	for _, item := range items {
		if err := visit(getID(item)); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}

// cycleOf returns the part of the DFS path that closes back to id.
func cycleOf(path []string, id string) []string {
	for i, p := range path {
		if p == id {
			return append([]string{}, path[i:]...)
		}
	}
	return []string{id}
}
