// Package command provides the SMTP commands the connection core relies on:
// EHLO, STARTTLS, QUIT, NOOP and AUTH.
//
// Every command implements smtp.Command. The one-line ones also implement
// smtp.SimpleCommand and can be sent with smtp.Conn.SendSimpleCmd directly.
package command
