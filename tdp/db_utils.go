// implements the backend, often-used pieces of the database functionality:
// the trips the pages are computed from and the log of noised releases

package tdp

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	log "github.com/golang/glog"
)

// DBName is the database every table lives in.
const DBName = "tdp"

// placeholders per INSERT, to stay under mysql's limit of 65,535
const maxPlaceholders = 50000

// every statement gets this long
const queryTimeout = 5 * time.Second

// gets the DSN for dbName from the user/password lines of a my.cnf file
func DSN(cnfPath, dbName string) (string, error) {
	f, err := os.Open(cnfPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", cnfPath, err)
	}
	defer f.Close()

	var username, password string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, val, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "user":
			username = strings.TrimSpace(val)
		case "password":
			password = strings.TrimSpace(val)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading %s: %w", cnfPath, err)
	}
	if username == "" {
		return "", fmt.Errorf("no user in %s", cnfPath)
	}

	return fmt.Sprintf("%s:%s@tcp(127.0.0.1)/%s?parseTime=true", username, password, dbName), nil
}

// creates the DB if it doesn't already exist, and returns a connection to it
func DBConnection(cnfPath string) (*sql.DB, error) {
	// PART 1: CREATE DB IF IT DOESN'T ALREADY EXIST
	dsn, err := DSN(cnfPath, "")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening server connection: %w", err)
	}

	ctx, cancelfunc := context.WithTimeout(context.Background(), queryTimeout)
	defer cancelfunc()
	if _, err := db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+DBName); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}
	db.Close()

	// PART 2: CONNECT TO EXISTING DB
	dsn, err = DSN(cnfPath, DBName)
	if err != nil {
		return nil, err
	}
	db, err = sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(60)
	db.SetMaxIdleConns(0)

	ctx, cancelfunc = context.WithTimeout(context.Background(), queryTimeout)
	defer cancelfunc()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Infof("Connected to DB %s successfully", DBName)
	return db, nil
}

var tableSchemas = map[string]string{
	"trips": `CREATE TABLE IF NOT EXISTS trips(
		trip_id INT PRIMARY KEY AUTO_INCREMENT,
		dataset VARCHAR(64) NOT NULL,
		driver_id VARCHAR(64),
		pickup_lat DOUBLE, pickup_lng DOUBLE,
		dropoff_lat DOUBLE, dropoff_lng DOUBLE,
		fare DOUBLE, tip DOUBLE,
		correct BOOLEAN,
		INDEX (dataset))`,
	"releases": `CREATE TABLE IF NOT EXISTS releases(
		release_id INT PRIMARY KEY AUTO_INCREMENT,
		request_id CHAR(36),
		page VARCHAR(32),
		name VARCHAR(64),
		epsilon DOUBLE,
		sensitivity DOUBLE,
		value DOUBLE,
		created DATETIME)`,
	PickupCountsTable: `CREATE TABLE IF NOT EXISTS pickup_counts(
		cell INT,
		count BIGINT,
		private BOOLEAN,
		epsilon DOUBLE)`,
}

// PickupCountsTable receives the per-cell counts of the batch pipeline.
const PickupCountsTable = "pickup_counts"

// creates a table with name tblName in DB db
func CreateTable(db *sql.DB, tblName string) error {
	query, ok := tableSchemas[tblName]
	if !ok {
		return fmt.Errorf("input to create table was not properly formatted: %s", tblName)
	}

	ctx, cancelfunc := context.WithTimeout(context.Background(), queryTimeout)
	defer cancelfunc()

	res, err := db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("creating table %s: %w", tblName, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	log.V(1).Infof("Rows affected when creating table %s: %d", tblName, rows)
	return nil
}

// builds "INSERT ... VALUES (?, ...), (?, ...)" for n rows of width columns
func insertQuery(table string, cols []string, n int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	rows := make([]string, n)
	for i := range rows {
		rows[i] = row
	}
	return "INSERT INTO " + table + "(" + strings.Join(cols, ", ") + ") VALUES " + strings.Join(rows, ",")
}

var tripColumns = []string{"dataset", "driver_id", "pickup_lat", "pickup_lng", "dropoff_lat", "dropoff_lng", "fare", "tip", "correct"}

// inserts trips under dataset in batches so as not to overwhelm the limits of
// mysql for loading data
func BatchInsertTrips(ctx context.Context, db *sql.DB, dataset string, trips []Trip) error {
	size := maxPlaceholders / len(tripColumns)
	for start := 0; start < len(trips); start += size {
		end := start + size
		if end > len(trips) {
			end = len(trips)
		}
		batch := trips[start:end]

		params := make([]interface{}, 0, len(batch)*len(tripColumns))
		for _, t := range batch {
			params = append(params, dataset, t.DriverID,
				t.Pickup.Latitude, t.Pickup.Longitude,
				t.Dropoff.Latitude, t.Dropoff.Longitude,
				t.Fare, t.Tip, t.Correct)
		}
		if err := insert(ctx, db, insertQuery("trips", tripColumns, len(batch)), params); err != nil {
			return fmt.Errorf("inserting trips %d-%d of %s: %w", start, end, dataset, err)
		}
	}
	return nil
}

// The actual workhorse of the insertion process. Safely inserts a set of params
// into a query and adds the whole thing to the database.
func insert(ctx context.Context, db *sql.DB, query string, params []interface{}) error {
	ctx, cancelfunc := context.WithTimeout(ctx, queryTimeout)
	defer cancelfunc()

	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing SQL statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, params...)
	if err != nil {
		return fmt.Errorf("executing insert: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finding rows affected: %w", err)
	}
	log.V(1).Infof("%d rows inserted", rows)
	return nil
}

// names of the datasets OverlayDB reads
const (
	TripsDataset     = "trips"
	CelebrityDataset = "celebrity"
	StripDataset     = "strip"
)

// OverlayDB replaces the datasets of ds with the ones loaded into db. Datasets
// with no rows keep their CSV contents. The driver map shows the pickups of
// driverID.
func OverlayDB(ctx context.Context, db *sql.DB, ds *Datasets, driverID string) error {
	trips, err := QueryTrips(ctx, db, TripsDataset)
	if err != nil {
		return err
	}
	if len(trips) > 0 {
		ds.PickupsAll = Pickups(trips, "")
		if driverID != "" {
			ds.PickupsDriver = Pickups(trips, driverID)
		}
	}

	celeb, err := QueryTrips(ctx, db, CelebrityDataset)
	if err != nil {
		return err
	}
	if len(celeb) > 0 {
		ds.Celebrity = celeb
	}

	strip, err := QueryTrips(ctx, db, StripDataset)
	if err != nil {
		return err
	}
	if len(strip) > 0 {
		ds.Strip = strip
	}
	log.Infof("loaded %d trips, %d celebrity trips and %d strip trips from the database", len(trips), len(celeb), len(strip))
	return nil
}

// function to read back every trip stored under dataset
func QueryTrips(ctx context.Context, db *sql.DB, dataset string) ([]Trip, error) {
	ctx, cancelfunc := context.WithTimeout(ctx, queryTimeout)
	defer cancelfunc()

	res, err := db.QueryContext(ctx, `
		SELECT driver_id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, fare, tip, correct
		FROM trips WHERE dataset = ? ORDER BY trip_id`, dataset)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer res.Close()

	var trips []Trip
	for res.Next() {
		var (
			t        Trip
			driverID sql.NullString
		)
		if err := res.Scan(&driverID, &t.Pickup.Latitude, &t.Pickup.Longitude,
			&t.Dropoff.Latitude, &t.Dropoff.Longitude, &t.Fare, &t.Tip, &t.Correct); err != nil {
			return nil, fmt.Errorf("scanning trip: %w", err)
		}
		t.DriverID = driverID.String
		t.Pickup.Count, t.Dropoff.Count = 1, 1
		trips = append(trips, t)
	}
	return trips, res.Err()
}

var releaseColumns = []string{"request_id", "page", "name", "epsilon", "sensitivity", "value", "created"}

// logs the noised values a page handed out. The true values are never stored.
func InsertReleases(ctx context.Context, db *sql.DB, requestID, page string, releases []Release) error {
	if len(releases) == 0 {
		return nil
	}
	now := time.Now().UTC()
	size := maxPlaceholders / len(releaseColumns)
	for start := 0; start < len(releases); start += size {
		end := start + size
		if end > len(releases) {
			end = len(releases)
		}
		params := make([]interface{}, 0, (end-start)*len(releaseColumns))
		for _, r := range releases[start:end] {
			params = append(params, requestID, page, r.Name, r.Epsilon, r.Sensitivity, r.Value, now)
		}
		if err := insert(ctx, db, insertQuery("releases", releaseColumns, end-start), params); err != nil {
			return fmt.Errorf("logging releases for %s: %w", page, err)
		}
	}
	return nil
}

// function for systematically dropping old rows. trips are dropped by dataset
// via DropDataset, releases by age here.
func DropOldData(ctx context.Context, db *sql.DB, before time.Time) error {
	ctx, cancelfunc := context.WithTimeout(ctx, queryTimeout)
	defer cancelfunc()

	res, err := db.ExecContext(ctx, `DELETE FROM releases WHERE created < ?`, before.UTC())
	if err != nil {
		return fmt.Errorf("deleting releases: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finding rows affected: %w", err)
	}
	log.Infof("%d releases deleted", rows)
	return nil
}

// drops every trip loaded under dataset
func DropDataset(ctx context.Context, db *sql.DB, dataset string) error {
	ctx, cancelfunc := context.WithTimeout(ctx, queryTimeout)
	defer cancelfunc()

	res, err := db.ExecContext(ctx, `DELETE FROM trips WHERE dataset = ?`, dataset)
	if err != nil {
		return fmt.Errorf("deleting trips of %s: %w", dataset, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finding rows affected: %w", err)
	}
	log.Infof("%d trips of %s deleted", rows, dataset)
	return nil
}
