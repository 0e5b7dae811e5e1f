package journal

import "fmt"

// Open picks a backend by driver name: "leveldb" (target is a directory) or
// "mysql" (target is a DSN). An empty driver disables the journal.
func Open(driver, target string) (Journal, error) {
	switch driver {
	case "":
		return nil, nil
	case "leveldb":
		j, err := OpenLevelDB(target)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "mysql":
		j, err := OpenMySQL(target)
		if err != nil {
			return nil, err
		}
		return j, nil
	}
	return nil, fmt.Errorf("unknown journal driver: %s", driver)
}
