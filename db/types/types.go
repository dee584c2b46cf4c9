package types

// Migration is a database migration to be run by db.RunMigrations. The SQL
// holds both directions separated by the sql-migrate up marker; Prefix is
// prepended to object names via the /*dbprefix*/ placeholder so the same
// migration can be instantiated more than once on a database.
type Migration struct {
	ID     string
	SQL    string
	Prefix string
}
