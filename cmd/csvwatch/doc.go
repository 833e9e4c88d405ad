// Command csvwatch watches directories for CSV files and converts each one
// to JSON once it has stopped changing. It also offers a one-shot convert
// mode and configuration utilities.
package main
